package licenses

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/pierrevannier/freelancehub-backend/internal/plans"
	"github.com/pierrevannier/freelancehub-backend/pkg/enums"
	"github.com/pierrevannier/freelancehub-backend/pkg/errors"
)

const (
	// KeyPrefix is the fixed first segment of every encoded license key.
	KeyPrefix = "FL"

	keyDelimiter = "-"
	keySegments  = 4

	// saltLength is the number of base-36 characters in the random segment.
	// 10 characters carry ~51 bits, enough that two keys minted in the same
	// millisecond for the same plan do not collide in practice.
	saltLength = 10

	// DefaultDurationMonths is the expiry horizon assumed when a key is
	// interpreted from its encoded string alone. The duration is never part
	// of the encoded string, so a pure decode cannot recover the value the
	// key was issued with; the persisted record remains the authority.
	DefaultDurationMonths = 1
)

// maxSalt bounds the random salt draw at 36^saltLength.
var maxSalt = new(big.Int).Exp(big.NewInt(36), big.NewInt(saltLength), nil)

// KeyFacts is what an encoded key string carries on its own.
type KeyFacts struct {
	Plan     plans.Plan
	IssuedAt time.Time
	Salt     string

	// ExpiresAt is computed with DefaultDurationMonths. Callers that hold
	// the persisted record must prefer its durationMonths instead.
	ExpiresAt time.Time
}

// Codec encodes and decodes license key strings. Decode performs no I/O;
// Encode draws randomness for the salt segment.
type Codec struct {
	catalog plans.Catalog
	now     func() time.Time
}

func NewCodec(catalog plans.Catalog) *Codec {
	return &Codec{
		catalog: catalog,
		now:     time.Now,
	}
}

// Encode mints a new key string for the plan and returns the expiry the
// issuance horizon implies. durationMonths affects only the returned expiry,
// never the string itself.
func (c *Codec) Encode(code enums.PlanCode, durationMonths int) (string, time.Time, error) {
	plan, err := c.catalog.GetPlan(code)
	if err != nil {
		return "", time.Time{}, err
	}

	issuedAt := c.now().UTC()
	salt, err := newSalt()
	if err != nil {
		return "", time.Time{}, errors.Wrap(errors.CodeInternal, err, "generating key salt")
	}

	key := strings.Join([]string{
		KeyPrefix,
		plan.Code.Code3(),
		strings.ToUpper(strconv.FormatInt(issuedAt.UnixMilli(), 36)),
		salt,
	}, keyDelimiter)

	return key, issuedAt.AddDate(0, durationMonths, 0), nil
}

// Decode reconstructs the facts an encoded key carries. It cannot recover the
// issued duration; ExpiresAt uses DefaultDurationMonths.
func (c *Codec) Decode(key string) (KeyFacts, error) {
	segments := strings.Split(key, keyDelimiter)
	if len(segments) != keySegments {
		return KeyFacts{}, errors.New(errors.CodeMalformedKey,
			fmt.Sprintf("expected %d segments, got %d", keySegments, len(segments)))
	}
	if segments[0] != KeyPrefix {
		return KeyFacts{}, errors.New(errors.CodeMalformedKey,
			fmt.Sprintf("unexpected prefix %q", segments[0]))
	}
	if !isBase36Upper(segments[2]) || !isBase36Upper(segments[3]) {
		return KeyFacts{}, errors.New(errors.CodeMalformedKey, "non base-36 segment")
	}

	plan, err := c.catalog.GetPlanByCode3(segments[1])
	if err != nil {
		return KeyFacts{}, err
	}

	millis, err := strconv.ParseInt(strings.ToLower(segments[2]), 36, 64)
	if err != nil || millis < 0 {
		return KeyFacts{}, errors.New(errors.CodeInvalidTimestamp,
			fmt.Sprintf("unparseable issue timestamp %q", segments[2]))
	}
	issuedAt := time.UnixMilli(millis).UTC()

	return KeyFacts{
		Plan:      plan,
		IssuedAt:  issuedAt,
		Salt:      segments[3],
		ExpiresAt: issuedAt.AddDate(0, DefaultDurationMonths, 0),
	}, nil
}

func newSalt() (string, error) {
	n, err := rand.Int(rand.Reader, maxSalt)
	if err != nil {
		return "", err
	}
	s := strings.ToUpper(n.Text(36))
	if len(s) < saltLength {
		s = strings.Repeat("0", saltLength-len(s)) + s
	}
	return s, nil
}

func isBase36Upper(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
