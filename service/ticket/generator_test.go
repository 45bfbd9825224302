package ticket

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"zestpass/db"
	"zestpass/db/memdb"

	"github.com/stretchr/testify/require"
)

var numberFormat = regexp.MustCompile(`^ZST-[A-Z0-9]+-[A-F0-9]+-[A-F0-9]+$`)

// Reader that always yields the same byte
type constReader byte

func (r constReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r)
	}
	return len(p), nil
}

func TestGeneratorUniqueness(t *testing.T) {
	ctx := context.Background()
	store := memdb.New()
	generator := NewGenerator()

	taken := map[string]bool{}
	for range 10000 {
		number, err := generator.Next(ctx, store, taken)
		require.NoError(t, err)
		require.Regexp(t, numberFormat, number)
		require.NoError(t, ParseTicketNumber(number))
	}
	require.Len(t, taken, 10000)
}

func TestCandidateUniqueness(t *testing.T) {
	generator := NewGenerator()

	seen := make(map[string]bool, 10000)
	for range 10000 {
		number, err := generator.Candidate()
		require.NoError(t, err)
		require.Regexp(t, numberFormat, number)
		require.False(t, seen[number], "duplicate candidate %s", number)
		seen[number] = true
	}
}

func TestGeneratorFallback(t *testing.T) {
	ctx := context.Background()
	store := memdb.New()
	frozen := time.Date(2026, time.March, 10, 15, 0, 0, 0, time.UTC)
	generator := &Generator{now: func() time.Time { return frozen }, random: constReader(0xAB)}

	candidate, err := generator.Candidate()
	require.NoError(t, err)
	require.NoError(t, store.CreateTickets(ctx, []db.Ticket{{TicketNumber: candidate, QRPayload: candidate}}))

	number, err := generator.Next(ctx, store, map[string]bool{})
	require.NoError(t, err)
	require.NotEqual(t, candidate, number)
	require.Regexp(t, numberFormat, number)
	require.NoError(t, ParseTicketNumber(number))
	require.Len(t, strings.Split(number, "-")[2], 16)
}

func TestGeneratorSkipsNumbersTakenInBatch(t *testing.T) {
	ctx := context.Background()
	frozen := time.Date(2026, time.March, 10, 15, 0, 0, 0, time.UTC)
	generator := &Generator{now: func() time.Time { return frozen }, random: constReader(0x01)}

	taken := map[string]bool{}
	first, err := generator.Next(ctx, memdb.New(), taken)
	require.NoError(t, err)

	second, err := generator.Next(ctx, memdb.New(), taken)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestParseTicketNumber(t *testing.T) {
	number, err := NewGenerator().Candidate()
	require.NoError(t, err)
	require.NoError(t, ParseTicketNumber(number))
	require.NoError(t, ParseTicketNumber(NormalizeTicketNumber(" "+strings.ToLower(number)+"\n")))

	// Flip the last checksum character
	last := number[len(number)-1]
	flipped := byte('0')
	if last == '0' {
		flipped = '1'
	}
	forged := number[:len(number)-1] + string(flipped)
	require.ErrorIs(t, ParseTicketNumber(forged), ErrInvalidFormat)

	require.ErrorIs(t, ParseTicketNumber("TICKET-123"), ErrInvalidFormat)
	require.ErrorIs(t, ParseTicketNumber(""), ErrInvalidFormat)
}
