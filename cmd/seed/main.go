package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicops/clinic-backoffice/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	clinicID, err := seedClinic(context.Background(), pool)
	if err != nil {
		log.Fatalf("seed clinic: %v", err)
	}
	doctorIDs, err := seedDoctors(context.Background(), pool, clinicID, 20)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	patientIDs, err := seedPatients(context.Background(), pool, 2000)
	if err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedAppointments(context.Background(), pool, clinicID, doctorIDs, patientIDs, 5000); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}

	log.Printf("seed complete, clinic_id=%s", clinicID)
}

func seedClinic(ctx context.Context, pool *pgxpool.Pool) (uuid.UUID, error) {
	id := uuid.New()
	_, err := pool.Exec(ctx, `
		INSERT INTO clinics (id, name, created_at, updated_at)
		VALUES ($1, $2, now(), now())
	`, id, gofakeit.Company()+" Clinic")
	return id, err
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, clinicID uuid.UUID, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d doctors", count)

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	specIDs := make([]uuid.UUID, 0, len(specialties))
	for _, spec := range specialties {
		id := uuid.New()
		_, err := tx.Exec(ctx, `
			INSERT INTO specializations (id, clinic_id, name)
			VALUES ($1, $2, $3)
		`, id, clinicID, spec)
		if err != nil {
			return nil, err
		}
		specIDs = append(specIDs, id)
	}

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		specID := specIDs[gofakeit.Number(0, len(specIDs)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, clinic_id, name, specialization_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, clinicID, "Dr. "+gofakeit.Name(), specID)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("doctors seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

	ids := make([]uuid.UUID, 0, count)
	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return nil, err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			gender := gofakeit.Gender()
			address := gofakeit.Address().Address

			// Roughly a third of profiles belong to someone else's
			// account (a dependent), mirroring the owning-user split.
			var userID *uuid.UUID
			if gofakeit.Number(0, 2) == 0 {
				owner := uuid.New()
				userID = &owner
			}

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, user_id, full_name, address, gender, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, now(), now())
			`, id, userID, gofakeit.Name(), address, gender)
			if err != nil {
				_ = tx.Rollback(ctx)
				return nil, err
			}
			ids = append(ids, id)
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return ids, nil
}

func seedAppointments(ctx context.Context, pool *pgxpool.Pool, clinicID uuid.UUID, doctorIDs, patientIDs []uuid.UUID, count int) error {
	log.Printf("seeding %d appointments", count)

	const batchSize = 500

	reasons := []string{
		"Routine checkup",
		"Skin rash",
		"Chest pain",
		"Back pain",
		"Follow-up visit",
		"Headache",
		"Annual physical",
	}
	times := []string{"08:00", "09:00", "10:00", "11:00", "13:00", "14:00", "15:00", "16:00"}

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			patientID := patientIDs[gofakeit.Number(0, len(patientIDs)-1)]
			date := time.Now().UTC().AddDate(0, 0, gofakeit.Number(-30, 30))
			reason := reasons[gofakeit.Number(0, len(reasons)-1)]
			hhmm := times[gofakeit.Number(0, len(times)-1)]
			age := gofakeit.Number(1, 90)

			// Most rows start pending with no doctor; some carry a
			// legacy name-only reference.
			var doctorID *uuid.UUID
			var doctorName *string
			switch gofakeit.Number(0, 5) {
			case 0:
				d := doctorIDs[gofakeit.Number(0, len(doctorIDs)-1)]
				doctorID = &d
			case 1:
				n := "Dr. " + gofakeit.Name()
				doctorName = &n
			}

			_, err := tx.Exec(ctx, `
				INSERT INTO appointments (
					id, clinic_id, user_id, patient_name, patient_age, patient_gender,
					date, time, reason, doctor_id, doctor_name, status, created_at, updated_at
				)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 'pending', now(), now())
			`, uuid.New(), clinicID, patientID, gofakeit.Name(), age, gofakeit.Gender(),
				date, hhmm, reason, doctorID, doctorName)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("appointments seeded: %d/%d", end, count)
	}

	log.Println("appointments seeded")
	return nil
}
