package analytics

import (
	"context"
	"time"

	"gorm.io/gorm"

	"vetcare-server/internal/apperr"
	"vetcare-server/internal/models"
)

const (
	trailingMonths = 12
	topN           = 5
)

// Service loads rows for the dashboards.
type Service struct {
	DB       *gorm.DB
	Location *time.Location
	Now      func() time.Time
}

// NewService creates an analytics Service.
func NewService(db *gorm.DB, loc *time.Location) *Service {
	return &Service{DB: db, Location: loc, Now: time.Now}
}

type appointmentRow struct {
	Status          models.AppointmentStatus
	AppointmentDate string
	TotalAmount     float64
	VeterinarianID  string
	ClinicID        string
	PatientID       string
}

type reviewRow struct {
	VeterinarianID string
	Rating         int
}

// Totals are headline counts.
type Totals struct {
	Users               int64 `json:"users"`
	PetOwners           int64 `json:"petOwners"`
	Veterinarians       int64 `json:"veterinarians"`
	Clinics             int64 `json:"clinics"`
	Pets                int64 `json:"pets"`
	Appointments        int64 `json:"appointments"`
	PendingApplications int64 `json:"pendingApplications"`
}

// Dashboard is the admin analytics view.
type Dashboard struct {
	Totals                    Totals         `json:"totals"`
	AppointmentsByStatus      map[string]int `json:"appointmentsByStatus"`
	UsersByRole               map[string]int `json:"usersByRole"`
	PetsBySpecies             map[string]int `json:"petsBySpecies"`
	VeterinariansBySpecialty  map[string]int `json:"veterinariansBySpecialization"`
	Monthly                   []MonthBucket  `json:"monthly"`
	Revenue                   RevenueSummary `json:"revenue"`
	TopVeterinariansByRevenue []Ranked       `json:"topVeterinariansByRevenue"`
	TopClinicsByAppointments  []Ranked       `json:"topClinicsByAppointments"`
	Reviews                   RatingSummary  `json:"reviews"`
	CompletionRate            float64        `json:"completionRatePercent"`
}

// VeterinarianStats is the analytics view of one veterinarian.
type VeterinarianStats struct {
	AppointmentsByStatus map[string]int `json:"appointmentsByStatus"`
	Monthly              []MonthBucket  `json:"monthly"`
	Revenue              RevenueSummary `json:"revenue"`
	UniquePatients       int            `json:"uniquePatients"`
	Reviews              RatingSummary  `json:"reviews"`
	CompletionRate       float64        `json:"completionRatePercent"`
}

func (s *Service) now() time.Time {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	if s.Location != nil {
		now = now.In(s.Location)
	}
	return now
}

func (s *Service) appointments(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]appointmentRow, error) {
	var rows []appointmentRow
	q := s.DB.WithContext(ctx).Model(&models.Appointment{}).
		Select("status", "appointment_date", "total_amount", "veterinarian_id", "clinic_id", "patient_id")
	if scope != nil {
		q = scope(q)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, apperr.Internal("failed to load appointments", err)
	}
	return rows, nil
}

func (s *Service) timeline(rows []appointmentRow) []MonthBucket {
	now := s.now()
	points := make([]Dated, 0, len(rows))
	for _, r := range rows {
		at, err := time.ParseInLocation("2006-01-02", r.AppointmentDate, now.Location())
		if err != nil {
			continue
		}
		p := Dated{At: at}
		if r.Status == models.StatusCompleted {
			p.Amount = r.TotalAmount
		}
		points = append(points, p)
	}
	return MonthlyBuckets(points, now, trailingMonths)
}

func completed(rows []appointmentRow) []appointmentRow {
	var out []appointmentRow
	for _, r := range rows {
		if r.Status == models.StatusCompleted {
			out = append(out, r)
		}
	}
	return out
}

func amounts(rows []appointmentRow) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.TotalAmount
	}
	return out
}

// completionRate is completed over all finished appointments, as a percentage.
func completionRate(byStatus map[string]int) float64 {
	done := byStatus[string(models.StatusCompleted)]
	finished := done + byStatus[string(models.StatusCancelled)] + byStatus[string(models.StatusNoShow)]
	return Round2(Ratio(float64(done), float64(finished)) * 100)
}

// Dashboard builds the admin dashboard.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	db := s.DB.WithContext(ctx)
	var d Dashboard

	counts := []struct {
		model any
		where string
		args  []any
		dest  *int64
	}{
		{&models.User{}, "", nil, &d.Totals.Users},
		{&models.PetOwner{}, "", nil, &d.Totals.PetOwners},
		{&models.Veterinarian{}, "", nil, &d.Totals.Veterinarians},
		{&models.Clinic{}, "", nil, &d.Totals.Clinics},
		{&models.Patient{}, "", nil, &d.Totals.Pets},
		{&models.Appointment{}, "", nil, &d.Totals.Appointments},
		{&models.VeterinarianApplication{}, "status = ?", []any{models.ApplicationPending}, &d.Totals.PendingApplications},
	}
	for _, c := range counts {
		q := db.Model(c.model)
		if c.where != "" {
			q = q.Where(c.where, c.args...)
		}
		if err := q.Count(c.dest).Error; err != nil {
			return nil, apperr.Internal("failed to count rows", err)
		}
	}

	var roles []string
	if err := db.Model(&models.Profile{}).Pluck("role", &roles).Error; err != nil {
		return nil, apperr.Internal("failed to load roles", err)
	}
	d.UsersByRole = CountBy(roles, func(r string) string { return r })

	var species []string
	if err := db.Model(&models.Patient{}).Pluck("species", &species).Error; err != nil {
		return nil, apperr.Internal("failed to load species", err)
	}
	d.PetsBySpecies = CountBy(species, func(s string) string { return s })

	var vets []models.Veterinarian
	if err := db.Select("id", "full_name", "specialization").Find(&vets).Error; err != nil {
		return nil, apperr.Internal("failed to load veterinarians", err)
	}
	d.VeterinariansBySpecialty = CountBy(vets, func(v models.Veterinarian) string { return v.Specialization })

	rows, err := s.appointments(ctx, nil)
	if err != nil {
		return nil, err
	}
	d.AppointmentsByStatus = CountBy(rows, func(r appointmentRow) string { return string(r.Status) })
	d.Monthly = s.timeline(rows)
	done := completed(rows)
	d.Revenue = Revenue(amounts(done))
	d.CompletionRate = completionRate(d.AppointmentsByStatus)

	d.TopVeterinariansByRevenue = TopN(done, topN,
		func(r appointmentRow) string { return r.VeterinarianID },
		func(r appointmentRow) float64 { return r.TotalAmount })
	vetNames := make(map[string]string, len(vets))
	for _, v := range vets {
		vetNames[v.ID] = v.FullName
	}
	for i := range d.TopVeterinariansByRevenue {
		d.TopVeterinariansByRevenue[i].Name = vetNames[d.TopVeterinariansByRevenue[i].ID]
	}

	d.TopClinicsByAppointments = TopN(rows, topN,
		func(r appointmentRow) string { return r.ClinicID },
		func(appointmentRow) float64 { return 1 })
	if len(d.TopClinicsByAppointments) > 0 {
		ids := make([]string, len(d.TopClinicsByAppointments))
		for i, r := range d.TopClinicsByAppointments {
			ids[i] = r.ID
		}
		var clinics []models.Clinic
		if err := db.Select("id", "name").Where("id IN ?", ids).Find(&clinics).Error; err != nil {
			return nil, apperr.Internal("failed to load clinics", err)
		}
		names := make(map[string]string, len(clinics))
		for _, c := range clinics {
			names[c.ID] = c.Name
		}
		for i := range d.TopClinicsByAppointments {
			d.TopClinicsByAppointments[i].Name = names[d.TopClinicsByAppointments[i].ID]
		}
	}

	reviews, err := s.ratings(ctx, "")
	if err != nil {
		return nil, err
	}
	d.Reviews = reviews
	return &d, nil
}

// Veterinarian builds the stats of one veterinarian.
func (s *Service) Veterinarian(ctx context.Context, veterinarianID string) (*VeterinarianStats, error) {
	rows, err := s.appointments(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("veterinarian_id = ?", veterinarianID)
	})
	if err != nil {
		return nil, err
	}
	st := &VeterinarianStats{
		AppointmentsByStatus: CountBy(rows, func(r appointmentRow) string { return string(r.Status) }),
		Monthly:              s.timeline(rows),
		Revenue:              Revenue(amounts(completed(rows))),
		UniquePatients:       len(CountBy(rows, func(r appointmentRow) string { return r.PatientID })),
	}
	st.CompletionRate = completionRate(st.AppointmentsByStatus)
	if st.Reviews, err = s.ratings(ctx, veterinarianID); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Service) ratings(ctx context.Context, veterinarianID string) (RatingSummary, error) {
	var rows []reviewRow
	q := s.DB.WithContext(ctx).Model(&models.Review{}).Select("veterinarian_id", "rating")
	if veterinarianID != "" {
		q = q.Where("veterinarian_id = ?", veterinarianID)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return RatingSummary{}, apperr.Internal("failed to load reviews", err)
	}
	ratings := make([]int, len(rows))
	for i, r := range rows {
		ratings[i] = r.Rating
	}
	return Ratings(ratings), nil
}
