package handler

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	contractx "github.com/careloop/careline/agent/contract"
)

var (
	firstNames = []string{"Aarav", "Ishita", "Rohan", "Priya", "Samar", "Nina", "Arjun", "Maya", "Vikram", "Kavya"}
	lastNames  = []string{"Sharma", "Patel", "Singh", "Gupta", "Rao", "Desai", "Mehra", "Chatterjee"}

	specialties = []string{"Cardiology", "Dermatology", "Orthopedics", "Pediatrics", "ENT", "Psychiatry", "General Medicine", "Ophthalmology"}
	genders     = []string{"Male", "Female", "Non-binary"}
	locations   = []string{"Bhubaneswar", "Bengaluru", "Delhi", "Mumbai", "Hyderabad", "Kolkata", "Pune"}

	emailDomains = []string{"example.com", "clinicmail.com", "provider.org"}
)

// GenerateFunc produces synthetic candidate records for a user query.
type GenerateFunc func(n int, seedText string) ([]contractx.Candidate, error)

// GenerateCandidates builds n synthetic provider records. The RNG is seeded
// from the query text mixed with the clock, so identical queries still vary;
// the seed adds flavor, not reproducibility.
func GenerateCandidates(n int, seedText string) ([]contractx.Candidate, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: candidate count %d is negative", contractx.ErrValidation, n)
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(seedText))
	rng := rand.New(rand.NewSource(int64(h.Sum64()) ^ time.Now().UnixNano()))

	candidates := make([]contractx.Candidate, 0, n)
	for i := 0; i < n; i++ {
		name := pick(rng, firstNames) + " " + pick(rng, lastNames)
		candidates = append(candidates, contractx.Candidate{
			ID:              uuid.NewString(),
			Name:            name,
			Gender:          pick(rng, genders),
			Specialty:       pick(rng, specialties),
			Rating:          roundToTenth(3.5 + rng.Float64()*1.5),
			YearsExperience: 2 + rng.Intn(29),
			Location:        pick(rng, locations),
			ContactEmail:    contactEmail(rng, name),
		})
	}
	return candidates, nil
}

func pick(rng *rand.Rand, pool []string) string {
	return pool[rng.Intn(len(pool))]
}

func roundToTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

func contactEmail(rng *rand.Rand, name string) string {
	slug := strings.ReplaceAll(strings.ToLower(name), " ", ".")
	return slug + "@" + pick(rng, emailDomains)
}
