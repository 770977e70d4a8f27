package tle

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Parse reads NORAD element sets from r and returns the parsed entries.
// Both the bare two-line and the named three-line layouts are accepted, and
// may be mixed within one stream. Malformed entries are skipped with a
// warning log.
func Parse(r io.Reader, logger *slog.Logger) ([]*ElementSet, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading element data: %w", err)
	}

	var entries []*ElementSet
	for i := 0; i < len(lines); {
		name := ""
		if !strings.HasPrefix(lines[i], "1 ") {
			name = strings.TrimSpace(lines[i])
			i++
		}
		if i+1 >= len(lines) || !strings.HasPrefix(lines[i], "1 ") || !strings.HasPrefix(lines[i+1], "2 ") {
			logger.Warn("skipping malformed element entry", "line_index", i, "name", name)
			i++
			continue
		}

		entry, err := parseLines(name, lines[i], lines[i+1])
		if err != nil {
			logger.Warn("skipping unparseable element entry", "name", name, "error", err)
			i += 2
			continue
		}
		entries = append(entries, entry)
		i += 2
	}

	return entries, nil
}

// parseLines extracts one ElementSet from a line-1/line-2 pair. Angles are
// converted to radians and the mean motion and its derivatives to the
// per-minute units the propagators work in.
func parseLines(name, line1, line2 string) (*ElementSet, error) {
	if len(line1) < 68 {
		return nil, fmt.Errorf("line 1 length %d, expected at least 68", len(line1))
	}
	if len(line2) < 68 {
		return nil, fmt.Errorf("line 2 length %d, expected at least 68", len(line2))
	}

	noradID, err := strconv.Atoi(strings.TrimSpace(line1[2:7]))
	if err != nil {
		return nil, fmt.Errorf("invalid catalog number %q: %w", line1[2:7], err)
	}

	epochStr := strings.TrimSpace(line1[18:32])
	epoch, epochDays, err := parseEpoch(epochStr)
	if err != nil {
		return nil, fmt.Errorf("invalid epoch %q: %w", epochStr, err)
	}

	e := &ElementSet{
		NORADID:        noradID,
		Name:           name,
		IntlDesignator: strings.TrimSpace(line1[9:17]),
		epoch:          epoch,
		epochDays:      epochDays,
	}

	fields := []struct {
		dst  *float64
		str  string
		what string
	}{
		{&e.xincl, line2[8:16], "inclination"},
		{&e.xnodeo, line2[17:25], "right ascension"},
		{&e.omegao, line2[34:42], "argument of perigee"},
		{&e.xmo, line2[43:51], "mean anomaly"},
		{&e.xno, line2[52:63], "mean motion"},
		{&e.xndt2o, line1[33:43], "mean motion derivative"},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f.str), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", f.what, f.str, err)
		}
		*f.dst = v
	}

	ecc, err := strconv.ParseFloat(strings.TrimSpace(line2[26:33]), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid eccentricity %q: %w", line2[26:33], err)
	}
	e.eo = ecc * 1.0e-7

	if e.xndd6o, err = parseExponentField(line1[44:52]); err != nil {
		return nil, fmt.Errorf("invalid nddot field: %w", err)
	}
	if e.bstar, err = parseExponentField(line1[53:61]); err != nil {
		return nil, fmt.Errorf("invalid bstar field: %w", err)
	}

	if v, err := strconv.Atoi(strings.TrimSpace(line1[62:63])); err == nil {
		e.EphemerisType = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(line1[64:68])); err == nil {
		e.SetNum = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(line2[63:68])); err == nil {
		e.OrbitNum = v
	}

	// Convert to internal units: radians and minutes.
	e.xincl *= deg2Rad
	e.xnodeo *= deg2Rad
	e.omegao *= deg2Rad
	e.xmo *= deg2Rad
	temp := twoPi / xmnpda / xmnpda
	e.xno = e.xno * temp * xmnpda
	e.xndt2o *= temp
	e.xndd6o *= temp / xmnpda

	return e, nil
}

// parseExponentField decodes the packed "±MMMMM±E" notation used for the
// nddot/6 and bstar fields, e.g. " 78676-4" -> 0.78676e-4.
func parseExponentField(s string) (float64, error) {
	mantStr := strings.TrimSpace(s[:6])
	expStr := strings.TrimSpace(s[6:])
	if mantStr == "" || mantStr == "+" || mantStr == "-" {
		return 0, nil
	}
	mant, err := strconv.ParseFloat(mantStr, 64)
	if err != nil {
		return 0, fmt.Errorf("mantissa %q: %w", mantStr, err)
	}
	exp := 0
	if expStr != "" && expStr != "+" && expStr != "-" {
		if exp, err = strconv.Atoi(expStr); err != nil {
			return 0, fmt.Errorf("exponent %q: %w", expStr, err)
		}
	}
	v := mant * 1.0e-5
	for ; exp > 0; exp-- {
		v *= 10.0
	}
	for ; exp < 0; exp++ {
		v /= 10.0
	}
	return v, nil
}

// parseEpoch converts an epoch string in YYDDD.DDDDDDDD format to absolute
// time plus the packed form. Year 00-56 maps to the 2000s, 57-99 to 1900s.
func parseEpoch(s string) (time.Time, float64, error) {
	if len(s) < 5 {
		return time.Time{}, 0, fmt.Errorf("epoch string too short: %q", s)
	}

	packed, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("invalid epoch: %w", err)
	}

	year, err := strconv.Atoi(s[:2])
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("invalid epoch year %q: %w", s[:2], err)
	}
	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}

	dayOfYear, err := strconv.ParseFloat(s[2:], 64)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("invalid epoch day %q: %w", s[2:], err)
	}

	// dayOfYear is 1-based: day 1 = Jan 1.
	t := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	t = t.Add(time.Duration((dayOfYear - 1) * float64(24*time.Hour)))

	return t, packed, nil
}
