package services

import (
	"hash/fnv"
	"math/rand"
	"strconv"

	"github.com/anis2566/monorepo-new-sub002/internal/models"
)

// seedFor derives a stable seed so a reloaded attempt sees the same order.
func seedFor(parts ...string) int64 {
	h := fnv.New64a()
	for i, p := range parts {
		if i > 0 {
			_, _ = h.Write([]byte{':'})
		}
		_, _ = h.Write([]byte(p))
	}
	return int64(h.Sum64())
}

// AssignQuestionOrder returns the question ids for an attempt, permuted by the
// attempt id when shuffle is enabled.
func AssignQuestionOrder(attemptID string, questions []models.MCQ, shuffle bool) []uint {
	ids := make([]uint, len(questions))
	for i := range questions {
		ids[i] = questions[i].ID
	}
	if !shuffle {
		return ids
	}

	rng := rand.New(rand.NewSource(seedFor(attemptID)))
	rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	return ids
}

// AssignOptionOrders permutes the options of every question independently.
// Returns nil when randomization is off.
func AssignOptionOrders(attemptID string, questions []models.MCQ, randomize bool) models.OptionOrders {
	if !randomize {
		return nil
	}

	orders := make(models.OptionOrders, len(questions))
	for i := range questions {
		q := &questions[i]
		rng := rand.New(rand.NewSource(seedFor(attemptID, strconv.FormatUint(uint64(q.ID), 10))))
		orders[q.ID] = rng.Perm(len(q.Options))
	}
	return orders
}
