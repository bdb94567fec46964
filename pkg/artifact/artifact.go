// Package artifact defines the chart kinds pitwall can render and the
// references handed back to callers once a chart is cached.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
)

// Kind names one rendered analysis output.
type Kind string

const (
	RacePositionsChanges     Kind = "race_positions_changes"
	RaceLapsTimes            Kind = "race_laps_times"
	RaceLaptimesDistribution Kind = "race_laptimes_distribution"
	QualyResults             Kind = "qualy_results"
)

// Kinds returns every supported kind in the order a full analysis renders them.
func Kinds() []Kind {
	return []Kind{
		RacePositionsChanges,
		RaceLapsTimes,
		RaceLaptimesDistribution,
		QualyResults,
	}
}

// ParseKind validates s against the supported kinds.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown artifact kind: %q", s)
	}
	return k, nil
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}
	return false
}

func (k Kind) String() string { return string(k) }

// Ref is what the resolver hands back for one artifact: where the rendered
// chart lives and its caption.
type Ref struct {
	Kind        Kind   `json:"kind"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

// FileName returns the deterministic file name for a chart. The readable
// part is slugged, so a short digest of the exact (driver, gp, season)
// subject follows it: GP strings that slug alike still get their own file.
func FileName(kind Kind, driver, gp string, season int) string {
	driver = strings.ToUpper(strings.TrimSpace(driver))
	return fmt.Sprintf("%s_%s_%s_%s_%s.png",
		kind,
		Slug(driver),
		Slug(gp),
		strconv.Itoa(season),
		subjectDigest(driver, gp, season),
	)
}

func subjectDigest(driver, gp string, season int) string {
	sum := sha256.Sum256([]byte(driver + "\x00" + gp + "\x00" + strconv.Itoa(season)))
	return hex.EncodeToString(sum[:5])
}

// FilePath joins FileName onto dir.
func FilePath(dir string, kind Kind, driver, gp string, season int) string {
	return filepath.Join(dir, FileName(kind, driver, gp, season))
}

// Slug reduces s to letters, digits and dashes so it is safe inside a file name.
func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.TrimSpace(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
