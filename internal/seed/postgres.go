package seed

import (
	"context"
	"database/sql"
	"fmt"

	"aps-assistant/internal/clinical"

	_ "github.com/lib/pq"
)

// PostgresSource reads the reference tables created by the migrations.
type PostgresSource struct {
	db *sql.DB
}

func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

// Open connects with the lib/pq driver and checks the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func (s *PostgresSource) Load(ctx context.Context) (Dataset, error) {
	var ds Dataset
	var err error

	if ds.Patients, err = s.loadPatients(ctx); err != nil {
		return Dataset{}, err
	}
	if ds.Consults, err = s.loadConsults(ctx); err != nil {
		return Dataset{}, err
	}
	if ds.Team, err = s.loadTeam(ctx); err != nil {
		return Dataset{}, err
	}
	return Normalize(ds)
}

func (s *PostgresSource) loadPatients(ctx context.Context) ([]clinical.Patient, error) {
	query := `SELECT id, name, age, procedure, COALESCE(pain_trend, ''), analgesia_plan, is_block_candidate FROM patients ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query patients: %w", err)
	}
	defer rows.Close()

	var patients []clinical.Patient
	index := make(map[int]int)
	for rows.Next() {
		var p clinical.Patient
		var trend string
		if err := rows.Scan(&p.ID, &p.Name, &p.Age, &p.Procedure, &trend, &p.AnalgesiaPlan, &p.IsBlockCandidate); err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		p.PainTrend = clinical.PainTrend(trend)
		index[p.ID] = len(patients)
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	vitalsQuery := `SELECT patient_id, time_label, pain_score, sedation_score, respiratory_rate FROM vitals ORDER BY patient_id, seq`
	vrows, err := s.db.QueryContext(ctx, vitalsQuery)
	if err != nil {
		return nil, fmt.Errorf("query vitals: %w", err)
	}
	defer vrows.Close()

	for vrows.Next() {
		var patientID int
		var v clinical.Vital
		if err := vrows.Scan(&patientID, &v.Time, &v.PainScore, &v.SedationScore, &v.RespiratoryRate); err != nil {
			return nil, fmt.Errorf("scan vital: %w", err)
		}
		i, ok := index[patientID]
		if !ok {
			return nil, fmt.Errorf("%w: vital for unknown patient %d", ErrInvalidDataset, patientID)
		}
		patients[i].Vitals = append(patients[i].Vitals, v)
	}
	return patients, vrows.Err()
}

func (s *PostgresSource) loadConsults(ctx context.Context) ([]clinical.Consult, error) {
	query := `
		SELECT c.id, c.patient_id, p.name, c.reason, c.time_label, COALESCE(c.urgency, ''), COALESCE(c.ai_rationale, '')
		FROM consults c
		JOIN patients p ON p.id = c.patient_id
		ORDER BY c.id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query consults: %w", err)
	}
	defer rows.Close()

	var consults []clinical.Consult
	for rows.Next() {
		var c clinical.Consult
		var urgency string
		if err := rows.Scan(&c.ID, &c.PatientID, &c.PatientName, &c.Reason, &c.Time, &urgency, &c.AIRationale); err != nil {
			return nil, fmt.Errorf("scan consult: %w", err)
		}
		if u, err := clinical.ParseUrgency(urgency); err == nil {
			c.Urgency = u
		}
		consults = append(consults, c)
	}
	return consults, rows.Err()
}

func (s *PostgresSource) loadTeam(ctx context.Context) ([]clinical.TeamMember, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, location FROM team_members ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query team: %w", err)
	}
	defer rows.Close()

	var team []clinical.TeamMember
	for rows.Next() {
		var m clinical.TeamMember
		if err := rows.Scan(&m.ID, &m.Name, &m.Location); err != nil {
			return nil, fmt.Errorf("scan team member: %w", err)
		}
		team = append(team, m)
	}
	return team, rows.Err()
}
