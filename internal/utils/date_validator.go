package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type DateFormat string

const (
	FormatRFC3339     DateFormat = time.RFC3339
	FormatISO8601Date DateFormat = "2006-01-02"
	FormatDateTime    DateFormat = "2006-01-02 15:04:05"
	FormatLocalISO    DateFormat = "2006-01-02T15:04:05"
	FormatSlashISO    DateFormat = "2006/01/02"
	FormatUSDate      DateFormat = "01/02/2006"
	FormatUSDateTime  DateFormat = "01/02/2006 15:04"
	FormatShortMonth  DateFormat = "Jan 2, 2006"
	FormatMonthDay    DateFormat = "January 2, 2006"
	FormatUnixTime    DateFormat = "unix"
	FormatSpreadsheet DateFormat = "serial"
)

const (
	maxUnixTime          = 4102444800 // 2100-01-01
	spreadsheetEpochDays = 25569      // days from 1899-12-30 to 1970-01-01
	minSerial            = 20000      // 1954-10-03
	maxSerial            = 100000
)

var usDatePattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})`)

// DateValidator parses the date formats survey sheets and clients send in.
// Results are reported in UTC.
type DateValidator struct {
	supportedFormats []DateFormat
}

type ValidationResult struct {
	IsValid        bool
	DetectedFormat DateFormat
	ParsedTime     time.Time
	OriginalValue  string
}

func NewDateValidator() *DateValidator {
	return &DateValidator{
		supportedFormats: []DateFormat{
			FormatRFC3339,
			FormatISO8601Date,
			FormatDateTime,
			FormatLocalISO,
			FormatSlashISO,
			FormatUSDate,
			FormatUSDateTime,
			FormatShortMonth,
			FormatMonthDay,
		},
	}
}

func (dv *DateValidator) ValidateAndConvert(input string) ValidationResult {
	result := ValidationResult{OriginalValue: input}

	input = strings.TrimSpace(input)
	if input == "" {
		return result
	}

	if parsed, format, ok := parseNumeric(input); ok {
		return dv.valid(result, parsed, format)
	}

	for _, format := range dv.supportedFormats {
		parsed, err := time.Parse(string(format), input)
		if err != nil {
			continue
		}
		if (format == FormatUSDate || format == FormatUSDateTime) && !validUSDate(input) {
			continue
		}
		return dv.valid(result, parsed, format)
	}

	return result
}

// Parse returns the time of input or an error naming the formats accepted.
func (dv *DateValidator) Parse(input string) (time.Time, error) {
	result := dv.ValidateAndConvert(input)
	if !result.IsValid {
		return time.Time{}, fmt.Errorf("invalid date %q; use YYYY-MM-DD or RFC 3339", input)
	}
	return result.ParsedTime, nil
}

// ParseOrDefault parses input, returning fallback when input is blank.
func (dv *DateValidator) ParseOrDefault(input string, fallback time.Time) (time.Time, error) {
	if strings.TrimSpace(input) == "" {
		return fallback.UTC(), nil
	}
	return dv.Parse(input)
}

func (dv *DateValidator) valid(result ValidationResult, parsed time.Time, format DateFormat) ValidationResult {
	parsed = parsed.UTC()
	result.IsValid = true
	result.DetectedFormat = format
	result.ParsedTime = parsed
	return result
}

// parseNumeric accepts unix seconds and spreadsheet serial day numbers, which
// is what a date cell reads as when its number format is lost.
func parseNumeric(input string) (time.Time, DateFormat, bool) {
	if seconds, err := strconv.ParseInt(input, 10, 64); err == nil && seconds > maxSerial && seconds < maxUnixTime {
		return time.Unix(seconds, 0), FormatUnixTime, true
	}

	serial, err := strconv.ParseFloat(input, 64)
	if err != nil || serial < minSerial || serial > maxSerial {
		return time.Time{}, "", false
	}
	seconds := (serial - spreadsheetEpochDays) * 86400
	return time.Unix(int64(seconds), 0), FormatSpreadsheet, true
}

func validUSDate(input string) bool {
	matches := usDatePattern.FindStringSubmatch(input)
	if len(matches) < 4 {
		return false
	}

	month, _ := strconv.Atoi(matches[1])
	day, _ := strconv.Atoi(matches[2])

	return month >= 1 && month <= 12 && day >= 1 && day <= 31
}
