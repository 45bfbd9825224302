package ticket

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"zestpass/db"
	"zestpass/util"
)

const (
	TicketPrefix = "ZST"

	// Random candidates tried before falling back to a longer random part
	maxNumberAttempts = 5
)

// ZST-<unix millis, base36>-<random hex>-<4 hex checksum>
var ticketNumberPattern = regexp.MustCompile(`^ZST-([A-Z0-9]+)-([A-F0-9]+)-([A-F0-9]{4})$`)

// Ticket number generator. The QR payload of a ticket is its number
type Generator struct {
	now    func() time.Time
	random io.Reader
}

// Constructor for the generator
func NewGenerator() *Generator {
	return &Generator{now: time.Now, random: rand.Reader}
}

// Candidate number with 8 random hex characters
func (generator *Generator) Candidate() (string, error) {
	return generator.build(4)
}

// Fallback number with 16 random hex characters, used once the short candidates kept colliding
func (generator *Generator) Fallback() (string, error) {
	return generator.build(8)
}

func (generator *Generator) build(randomBytes int) (string, error) {
	buf := make([]byte, randomBytes)
	if _, err := io.ReadFull(generator.random, buf); err != nil {
		return "", err
	}

	ts := strings.ToUpper(strconv.FormatInt(generator.now().UnixMilli(), 36))
	random := strings.ToUpper(hex.EncodeToString(buf))
	return fmt.Sprintf("%s-%s-%s-%s", TicketPrefix, ts, random, checksum(ts, random)), nil
}

// Next unused number. `taken` holds the numbers already handed out to the batch being built,
// which are not in the store yet
func (generator *Generator) Next(ctx context.Context, store db.Store, taken map[string]bool) (string, error) {
	for range maxNumberAttempts {
		number, err := generator.Candidate()
		if err != nil {
			return "", err
		}

		if taken[number] {
			continue
		}

		exists, err := store.TicketNumberExists(ctx, number)
		if err != nil {
			return "", err
		}
		if !exists {
			taken[number] = true
			return number, nil
		}
	}

	util.LOGGER.Warn("Ticket number collisions exhausted the short format, using fallback", "attempts", maxNumberAttempts)
	number, err := generator.Fallback()
	if err != nil {
		return "", err
	}
	taken[number] = true
	return number, nil
}

// First 2 bytes of SHA-256("<ts>-<random>"), upper hex
func checksum(ts, random string) string {
	sum := sha256.Sum256([]byte(ts + "-" + random))
	return strings.ToUpper(hex.EncodeToString(sum[:2]))
}

// Normalize scanner input: scanners and manual entry may add whitespace or lower case letters
func NormalizeTicketNumber(number string) string {
	return strings.ToUpper(strings.TrimSpace(number))
}

// Check the format and the checksum of a ticket number
func ParseTicketNumber(number string) error {
	parts := ticketNumberPattern.FindStringSubmatch(number)
	if parts == nil {
		return ErrInvalidFormat
	}
	if checksum(parts[1], parts[2]) != parts[3] {
		return fmt.Errorf("%w: checksum mismatch", ErrInvalidFormat)
	}
	return nil
}
