package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/25S2-PRT681-Group-D/server/internal/domain"
	"github.com/25S2-PRT681-Group-D/server/internal/repository"
)

// DefaultAnalyticsCount is the number of inspections SeedAnalytics creates
// when no count is given.
const DefaultAnalyticsCount = 200

// SeedResult counts the rows a seed run created.
type SeedResult struct {
	Users       int `json:"users"`
	Inspections int `json:"inspections"`
	Analyses    int `json:"analyses"`
}

// Seeder loads demonstration data. Every run is idempotent.
type Seeder struct {
	db      *sql.DB
	queries *repository.Queries
	logger  *slog.Logger
	rand    *rand.Rand
	now     func() time.Time
}

// NewSeeder creates a Seeder.
func NewSeeder(db *sql.DB, queries *repository.Queries, logger *slog.Logger) *Seeder {
	return &Seeder{
		db:      db,
		queries: queries,
		logger:  logger,
		rand:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
		now:     time.Now,
	}
}

type seedUser struct {
	first, last string
	role        domain.Role
	email       string
	password    string
}

var baseUsers = []seedUser{
	{"Jane", "Doe", domain.RoleFarmer, "jane.doe@example.com", "password123"},
	{"John", "Smith", domain.RoleAdmin, "john.smith@example.com", "admin123"},
	{"Alice", "Johnson", domain.RoleResearcher, "alice.johnson@example.com", "researcher123"},
}

type seedInspection struct {
	plant    string
	date     time.Time
	notes    string
	analysis repository.CreateInspectionAnalysisParams
}

var baseInspections = []seedInspection{
	{
		plant: "Tomato Plant",
		date:  time.Date(2025, 9, 9, 0, 0, 0, 0, time.UTC),
		notes: "Saw some yellowing on the lower leaves and a few dark spots. Plant seems a bit weaker than the others in the same row.",
		analysis: repository.CreateInspectionAnalysisParams{
			Status:          "At Risk",
			ConfidenceScore: "92.50",
			Description:     "Early blight is a common fungal disease that affects tomatoes. It is caused by the fungus Alternaria solani and typically appears on older leaves first as small, dark lesions which can enlarge and form a bull's-eye pattern.",
			TreatmentRecommendation: "1. Remove & Destroy: Immediately prune and destroy affected lower leaves to prevent the fungus from spreading. Do not compost them.\n" +
				"2. Improve Airflow: Ensure adequate spacing between plants to promote air circulation, which helps leaves dry faster and reduces fungal growth.\n" +
				"3. Fungicide Application: Apply a fungicide containing copper or chlorothalonil, following the product's instructions carefully, especially on new growth.",
		},
	},
	{
		plant: "Corn Stalk",
		date:  time.Date(2025, 9, 9, 0, 0, 0, 0, time.UTC),
		notes: "Healthy corn plant with good growth.",
		analysis: repository.CreateInspectionAnalysisParams{
			Status:                  "Healthy",
			ConfidenceScore:         "95.00",
			Description:             "The corn plant appears to be in excellent health with no visible signs of disease or pest damage.",
			TreatmentRecommendation: "Continue current care practices. Monitor regularly for any changes in plant health.",
		},
	},
	{
		plant: "Bell Pepper",
		date:  time.Date(2025, 9, 9, 0, 0, 0, 0, time.UTC),
		notes: "Pepper plant showing good health and fruit development.",
		analysis: repository.CreateInspectionAnalysisParams{
			Status:                  "Healthy",
			ConfidenceScore:         "88.00",
			Description:             "The bell pepper plant shows healthy growth with good fruit development and no signs of disease.",
			TreatmentRecommendation: "Maintain current watering and fertilization schedule. Ensure adequate sunlight exposure.",
		},
	},
	{
		plant: "Tomato Plant",
		date:  time.Date(2025, 9, 11, 0, 0, 0, 0, time.UTC),
		notes: "Another tomato plant inspection.",
		analysis: repository.CreateInspectionAnalysisParams{
			Status:                  "Healthy",
			ConfidenceScore:         "90.00",
			Description:             "This tomato plant appears healthy with no visible signs of disease or pest issues.",
			TreatmentRecommendation: "Continue regular monitoring and maintain proper care practices.",
		},
	},
}

// SeedBase creates three users and four inspections with analyses owned by
// the first user. It does nothing when any user exists.
func (s *Seeder) SeedBase(ctx context.Context) (*SeedResult, error) {
	const op = "seed.base"

	count, err := s.queries.CountUsers(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to count users")
	}
	result := &SeedResult{}
	if count > 0 {
		s.logger.Info("seed skipped, users already exist", "users", count)
		return result, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to begin transaction")
	}
	defer tx.Rollback()
	q := s.queries.WithTx(tx)

	var ownerID int64
	for i, u := range baseUsers {
		hash, err := hashPassword(u.password)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to hash password")
		}
		row, err := q.CreateUser(ctx, repository.CreateUserParams{
			FirstName:    u.first,
			LastName:     u.last,
			Role:         string(u.role),
			Email:        u.email,
			PasswordHash: hash,
		})
		if err != nil {
			return nil, domain.Internal(err, op, "failed to create user")
		}
		if i == 0 {
			ownerID = row.ID
		}
		result.Users++
	}

	for _, in := range baseInspections {
		row, err := q.CreateInspection(ctx, repository.CreateInspectionParams{
			UserID:         ownerID,
			PlantName:      in.plant,
			InspectionDate: in.date,
			Country:        "Australia",
			State:          "NT",
			City:           "Darwin",
			Notes:          in.notes,
		})
		if err != nil {
			return nil, domain.Internal(err, op, "failed to create inspection")
		}
		result.Inspections++

		analysis := in.analysis
		analysis.InspectionID = row.ID
		if _, err := q.CreateInspectionAnalysis(ctx, analysis); err != nil {
			return nil, domain.Internal(err, op, "failed to create analysis")
		}
		result.Analyses++
	}

	if err := tx.Commit(); err != nil {
		return nil, domain.Internal(err, op, "failed to commit seed data")
	}
	s.logger.Info("seed data created", "users", result.Users, "inspections", result.Inspections, "analyses", result.Analyses)
	return result, nil
}

var (
	analyticsPlants    = []string{"Tomato", "Corn", "Bell Pepper", "Wheat", "Soybean", "Lettuce", "Carrot", "Potato", "Onion", "Cucumber"}
	analyticsStatuses  = []string{"Healthy", "At Risk", "Alert", "Diseased"}
	analyticsCountries = []string{"Australia", "USA", "Canada", "UK", "Germany"}
	analyticsStates    = []string{"NT", "WA", "SA", "QLD", "NSW", "VIC", "TAS", "CA", "TX", "FL", "NY"}
	analyticsCities    = []string{"Darwin", "Perth", "Adelaide", "Brisbane", "Sydney", "Melbourne", "Hobart", "Los Angeles", "Houston", "Miami", "New York", "Seattle"}
)

var analyticsFindings = map[string][2]string{
	"Healthy":  {"No visible signs of disease or pest damage.", "Continue current care practices and monitor regularly."},
	"At Risk":  {"Early symptoms of stress such as discoloured lower leaves.", "Improve airflow and check watering; re-inspect within a week."},
	"Alert":    {"Spreading lesions observed on several leaves.", "Remove affected foliage and apply an appropriate fungicide."},
	"Diseased": {"Severe infection across most of the plant.", "Remove and destroy the plant to protect neighbouring crops."},
}

// SeedAnalytics creates count random inspections with analyses for userID,
// dated within the last year. It does nothing when the user already has
// inspections and returns domain.ENOTFOUND for an unknown user.
func (s *Seeder) SeedAnalytics(ctx context.Context, userID int64, count int) (int, error) {
	const op = "seed.analytics"

	if count <= 0 {
		count = DefaultAnalyticsCount
	}

	if _, err := s.queries.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.NotFound(op, "user", userID)
		}
		return 0, domain.Internal(err, op, "failed to get user")
	}
	existing, err := s.queries.CountInspectionsByUser(ctx, userID)
	if err != nil {
		return 0, domain.Internal(err, op, "failed to count inspections")
	}
	if existing > 0 {
		s.logger.Info("analytics seed skipped, user has inspections", "user_id", userID, "inspections", existing)
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, domain.Internal(err, op, "failed to begin transaction")
	}
	defer tx.Rollback()
	q := s.queries.WithTx(tx)

	today := s.now().UTC().Truncate(24 * time.Hour)
	for i := 0; i < count; i++ {
		row, err := q.CreateInspection(ctx, repository.CreateInspectionParams{
			UserID:         userID,
			PlantName:      pick(s.rand, analyticsPlants),
			InspectionDate: today.AddDate(0, 0, -s.rand.IntN(365)),
			Country:        pick(s.rand, analyticsCountries),
			State:          pick(s.rand, analyticsStates),
			City:           pick(s.rand, analyticsCities),
			Notes:          fmt.Sprintf("Analytics sample inspection #%d", i+1),
		})
		if err != nil {
			return 0, domain.Internal(err, op, "failed to create inspection")
		}

		status := pick(s.rand, analyticsStatuses)
		finding := analyticsFindings[status]
		if _, err := q.CreateInspectionAnalysis(ctx, repository.CreateInspectionAnalysisParams{
			InspectionID:            row.ID,
			Status:                  status,
			ConfidenceScore:         domain.FormatConfidence(60 + s.rand.Float64()*40),
			Description:             finding[0],
			TreatmentRecommendation: finding[1],
		}); err != nil {
			return 0, domain.Internal(err, op, "failed to create analysis")
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, domain.Internal(err, op, "failed to commit analytics data")
	}
	s.logger.Info("analytics data created", "user_id", userID, "inspections", count)
	return count, nil
}

func pick(r *rand.Rand, values []string) string {
	return values[r.IntN(len(values))]
}
