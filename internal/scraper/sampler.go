package scraper

import (
	"math"
	"math/rand"
	"sort"
)

const (
	DefaultSampleMin = 5
	DefaultSampleMax = 25

	TargetAverageLow  = 4.2
	TargetAverageHigh = 4.8
)

// DefaultRatingWeights is the target share of the sample per star rating.
var DefaultRatingWeights = map[int]float64{
	5: 0.50,
	4: 0.30,
	3: 0.10,
	2: 0.05,
	1: 0.05,
}

type SampleOptions struct {
	Min     int
	Max     int
	Seed    int64
	Weights map[int]float64
}

func (o SampleOptions) withDefaults() SampleOptions {
	if o.Min <= 0 {
		o.Min = DefaultSampleMin
	}
	if o.Max < o.Min {
		o.Max = DefaultSampleMax
		if o.Max < o.Min {
			o.Max = o.Min
		}
	}
	if len(o.Weights) == 0 {
		o.Weights = DefaultRatingWeights
	}
	return o
}

// Sample picks between Min and Max reviews, keeping every rating that appears
// in the candidates and favouring reviews with photos. The same seed and input
// always give the same result.
func Sample(candidates []ReviewCandidate, opts SampleOptions) []ReviewCandidate {
	opts = opts.withDefaults()

	reviews := make([]ReviewCandidate, len(candidates))
	copy(reviews, candidates)
	for i := range reviews {
		reviews[i].Rating = clampRating(reviews[i].Rating)
	}

	if len(reviews) <= opts.Min {
		return reviews
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	target := opts.Min + rng.Intn(opts.Max-opts.Min+1)
	if target > len(reviews) {
		target = len(reviews)
	}

	buckets := make(map[int][]ReviewCandidate, 5)
	for _, r := range reviews {
		buckets[r.Rating] = append(buckets[r.Rating], r)
	}
	// Fixed rating order keeps the rng sequence stable for a given seed.
	for rating := 5; rating >= 1; rating-- {
		bucket := buckets[rating]
		rng.Shuffle(len(bucket), func(i, j int) { bucket[i], bucket[j] = bucket[j], bucket[i] })
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].HasPhotos() && !bucket[j].HasPhotos()
		})
		buckets[rating] = bucket
	}

	// One seat per rating present, highest first, so low ratings survive.
	taken := make(map[int]int, 5)
	remaining := target
	for rating := 5; rating >= 1 && remaining > 0; rating-- {
		if len(buckets[rating]) > 0 {
			taken[rating] = 1
			remaining--
		}
	}

	for rating := 5; rating >= 1 && remaining > 0; rating-- {
		want := int(math.Round(float64(target)*opts.Weights[rating])) - taken[rating]
		avail := len(buckets[rating]) - taken[rating]
		n := minInt(want, avail, remaining)
		if n > 0 {
			taken[rating] += n
			remaining -= n
		}
	}

	for rating := 5; rating >= 1 && remaining > 0; rating-- {
		n := minInt(len(buckets[rating])-taken[rating], remaining)
		if n > 0 {
			taken[rating] += n
			remaining -= n
		}
	}

	out := make([]ReviewCandidate, 0, target)
	for rating := 5; rating >= 1; rating-- {
		out = append(out, buckets[rating][:taken[rating]]...)
	}
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func minInt(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

type SampleStats struct {
	Total             int         `json:"total"`
	AverageRating     float64     `json:"average_rating"`
	Distribution      map[int]int `json:"distribution"`
	WithPhotos        int         `json:"with_photos"`
	WithoutPhotos     int         `json:"without_photos"`
	PhotoPresenceRate float64     `json:"photo_presence_rate"`
}

// InTargetBand reports whether the average rating falls within 4.2-4.8.
func (s SampleStats) InTargetBand() bool {
	return s.Total == 0 || (s.AverageRating >= TargetAverageLow && s.AverageRating <= TargetAverageHigh)
}

func Stats(reviews []ReviewCandidate) SampleStats {
	stats := SampleStats{
		Total:        len(reviews),
		Distribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
	}
	if len(reviews) == 0 {
		return stats
	}

	sum := 0
	for _, r := range reviews {
		rating := clampRating(r.Rating)
		sum += rating
		stats.Distribution[rating]++
		if r.HasPhotos() {
			stats.WithPhotos++
		}
	}
	stats.WithoutPhotos = stats.Total - stats.WithPhotos
	stats.AverageRating = math.Round(float64(sum)/float64(stats.Total)*100) / 100
	stats.PhotoPresenceRate = math.Round(float64(stats.WithPhotos)/float64(stats.Total)*100) / 100
	return stats
}
