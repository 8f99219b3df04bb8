package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"time"

	"github.com/diewo77/go-facturas/internal/logger"
)

// InvoiceNumberPrefix starts every generated number.
const InvoiceNumberPrefix = "FAC-"

var invoiceNumberPattern = regexp.MustCompile(`^FAC-(\d{4})(\d{2})-(\d+)$`)

// LastNumberReader is the slice of the store the generator needs.
type LastNumberReader interface {
	LastInvoiceNumber(ctx context.Context) (number string, ok bool, err error)
}

// Counter hands out a shared, monotonic suffix. floor is the suffix derived
// from the stored invoices; the counter never returns less.
type Counter interface {
	Next(ctx context.Context, floor int) (int, error)
}

// NumberGenerator proposes the next invoice number. Numbers are suggestions:
// two concurrent composers can receive the same one.
type NumberGenerator struct {
	invoices LastNumberReader
	counter  Counter
	now      func() time.Time
	randN    func(n int) int
	log      *logger.Logger
}

type NumberOption func(*NumberGenerator)

// WithCounter adds a shared counter consulted after the stored last number.
func WithCounter(c Counter) NumberOption {
	return func(g *NumberGenerator) { g.counter = c }
}

// WithClock overrides the clock used for the year/month prefix.
func WithClock(now func() time.Time) NumberOption {
	return func(g *NumberGenerator) { g.now = now }
}

// WithRandom overrides the random source used by the failure fallback.
func WithRandom(randN func(n int) int) NumberOption {
	return func(g *NumberGenerator) { g.randN = randN }
}

func NewNumberGenerator(invoices LastNumberReader, log *logger.Logger, opts ...NumberOption) *NumberGenerator {
	g := &NumberGenerator{invoices: invoices, now: time.Now, randN: rand.IntN, log: log}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Next returns FAC-<YYYY><MM>-<NNN>. The suffix follows the most recently
// created invoice, whatever its month. Read failures fall back to a random
// suffix; no error is surfaced.
func (g *NumberGenerator) Next(ctx context.Context) string {
	prefix := InvoiceNumberPrefix + g.now().Format("200601") + "-"

	last, ok, err := g.invoices.LastInvoiceNumber(ctx)
	if err != nil {
		g.log.WarnwCtx(ctx, "could not read last invoice number, using random suffix", "error", err)
		return prefix + pad3(g.randN(1000))
	}

	seq := 1
	if ok {
		seq = NextSuffix(last)
	}
	if g.counter != nil {
		n, err := g.counter.Next(ctx, seq)
		if err != nil {
			g.log.WarnwCtx(ctx, "invoice counter unavailable", "error", err)
		} else {
			seq = n
		}
	}
	return prefix + pad3(seq)
}

// NextSuffix returns the suffix following number, or 1 when number does not
// follow the FAC-YYYYMM-NNN pattern.
func NextSuffix(number string) int {
	m := invoiceNumberPattern.FindStringSubmatch(number)
	if m == nil {
		return 1
	}
	n, err := strconv.Atoi(m[3])
	if err != nil {
		return 1
	}
	return n + 1
}

func pad3(n int) string { return fmt.Sprintf("%03d", n) }
