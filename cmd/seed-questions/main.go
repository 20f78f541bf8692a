package main

import (
	"context"
	"fmt"
	"time"

	"github.com/selekta/portal-backend/internal/config"
	"github.com/selekta/portal-backend/internal/database"
	"github.com/selekta/portal-backend/internal/logger"
	"github.com/selekta/portal-backend/internal/model"
	"github.com/selekta/portal-backend/internal/repository"
)

// seedQuestion is a compact literal form for the sample bank.
type seedQuestion struct {
	text       string
	a, b, c, d string
	correct    string
	category   string
	difficulty model.Difficulty
}

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	questionRepo := repository.NewQuestionRepository(pool)

	seeds := sampleBank()
	fmt.Printf("=== Seeding %d Questions ===\n", len(seeds))

	successCount := 0
	for _, s := range seeds {
		q := &model.Question{
			QuestionText:  s.text,
			OptionA:       s.a,
			OptionB:       s.b,
			OptionC:       s.c,
			OptionD:       s.d,
			CorrectAnswer: s.correct,
			Category:      s.category,
			Difficulty:    s.difficulty,
		}
		if err := questionRepo.Create(ctx, q); err != nil {
			log.Error().Err(err).Str("question", s.text).Msg("Insert failed")
			continue
		}
		successCount++
	}

	fmt.Printf("Done. %d/%d questions inserted.\n", successCount, len(seeds))
}

// sampleBank returns a small mixed-difficulty bank. The generator loops the
// base set with numbered variants so the pool is large enough for a full
// 30-question draw during development.
func sampleBank() []seedQuestion {
	base := []seedQuestion{
		{"Berapakah hasil dari 12 x 8?", "86", "96", "104", "92", "B", "Matematika", model.DifficultyEasy},
		{"Ibukota provinsi Jawa Timur adalah...", "Semarang", "Bandung", "Surabaya", "Malang", "C", "Pengetahuan Umum", model.DifficultyEasy},
		{"Sinonim dari kata 'efisien' adalah...", "Hemat", "Cepat", "Mahal", "Rumit", "A", "Bahasa Indonesia", model.DifficultyEasy},
		{"Jika 3x + 5 = 20, maka nilai x adalah...", "3", "4", "5", "6", "C", "Matematika", model.DifficultyMedium},
		{"Planet terbesar di tata surya adalah...", "Saturnus", "Neptunus", "Bumi", "Jupiter", "D", "IPA", model.DifficultyEasy},
		{"Deret 2, 6, 18, 54, ... suku berikutnya adalah...", "108", "162", "124", "148", "B", "Logika", model.DifficultyMedium},
		{"Antonim dari kata 'apriori' adalah...", "Aposteriori", "Apatis", "Aplikatif", "Abolisi", "A", "Bahasa Indonesia", model.DifficultyHard},
		{"Sebuah mobil menempuh 240 km dalam 3 jam. Kecepatan rata-ratanya adalah...", "60 km/jam", "70 km/jam", "80 km/jam", "90 km/jam", "C", "Matematika", model.DifficultyMedium},
		{"Gas yang paling banyak terdapat di atmosfer bumi adalah...", "Oksigen", "Karbon dioksida", "Nitrogen", "Hidrogen", "C", "IPA", model.DifficultyMedium},
		{"Semua A adalah B. Sebagian B adalah C. Kesimpulan yang pasti benar adalah...", "Semua A adalah C", "Sebagian A adalah C", "Tidak dapat disimpulkan", "Semua C adalah A", "C", "Logika", model.DifficultyHard},
	}

	// 6 variants of each base question gives a 60-question pool.
	seeds := make([]seedQuestion, 0, len(base)*6)
	for i := 0; i < 6; i++ {
		for _, s := range base {
			v := s
			if i > 0 {
				v.text = fmt.Sprintf("%s (variasi %d)", s.text, i+1)
			}
			seeds = append(seeds, v)
		}
	}
	return seeds
}
