package exercise

import (
	"math/rand"
	"sync"
	"time"

	"typingclash/internal/keyboard"
	"typingclash/internal/stats"
)

// Config tunes sequence generation.
type Config struct {
	MinKeystrokes   int
	NewFingerRepeat int
	ReviewRepeat    int
	CombinationMin  int
	TopUpBlock      int
	WeakThreshold   float64
	WeakRatio       float64
}

// DefaultConfig holds the standard daily drill parameters.
var DefaultConfig = Config{
	MinKeystrokes:   300,
	NewFingerRepeat: 15,
	ReviewRepeat:    8,
	CombinationMin:  100,
	TopUpBlock:      50,
	WeakThreshold:   0.8,
	WeakRatio:       0.3,
}

// Generator builds daily drill sequences. It is safe for concurrent use.
type Generator struct {
	cfg Config
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a generator. A nil rng seeds from the wall clock.
func NewGenerator(cfg Config, rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{cfg: cfg, rng: rng}
}

// Config returns the generator's configuration
func (g *Generator) Config() Config {
	return g.cfg
}

// Generate returns the character sequence for day, weighted by letters.
// The result is always at least MinKeystrokes long and contains only
// characters unlocked for the day.
func (g *Generator) Generate(day int, letters stats.Table) []rune {
	if day < 1 {
		day = 1
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	chars := keyboard.CharsForDay(day)
	newFingers := keyboard.NewFingersForDay(day)

	var seq []rune
	for _, r := range chars {
		repeat := g.cfg.ReviewRepeat
		if f, ok := keyboard.FingerFor(r); ok && containsFinger(newFingers, f) {
			repeat = g.cfg.NewFingerRepeat
		}
		for i := 0; i < repeat; i++ {
			seq = append(seq, r)
		}
	}

	seq = append(seq, g.combination(chars, max(g.cfg.CombinationMin, g.cfg.MinKeystrokes-len(seq)))...)

	if letters != nil {
		if weak := letters.Weak(chars, g.cfg.WeakThreshold); len(weak) > 0 {
			n := int(float64(len(seq)) * g.cfg.WeakRatio)
			seq = append(seq, g.combination(weak, n)...)
		}
	}

	for len(seq) < g.cfg.MinKeystrokes {
		seq = append(seq, g.combination(chars, g.cfg.TopUpBlock)...)
	}

	g.shuffle(seq)
	return seq
}

// combination draws length characters by concatenating full shuffles of chars.
func (g *Generator) combination(chars []rune, length int) []rune {
	if len(chars) == 0 || length <= 0 {
		return nil
	}
	out := make([]rune, 0, length+len(chars))
	for len(out) < length {
		block := append([]rune(nil), chars...)
		g.shuffle(block)
		out = append(out, block...)
	}
	return out[:length]
}

func (g *Generator) shuffle(s []rune) {
	g.rng.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
}

func containsFinger(fingers []keyboard.Finger, f keyboard.Finger) bool {
	for _, x := range fingers {
		if x == f {
			return true
		}
	}
	return false
}
