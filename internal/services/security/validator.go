// Package security validates user input before it reaches the paid
// backend: length bounds first, then prompt-injection patterns, then a
// special-character ratio check. Cheap checks run first because the
// pattern scan is the most expensive step.
package security

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/models"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

const (
	securityFileName = "security.jsonl"
	previewLimit     = 100

	// maxSpecialCharRatio rejects input whose share of characters outside
	// the whitelist exceeds this fraction.
	maxSpecialCharRatio = 0.3

	reasonSpecialChars = "excessive_special_chars"
)

// suspiciousPatterns catch prompt-injection and script-injection attempts.
// The matched identifier is logged but never echoed to the user, so the
// list stays useful against probing.
var suspiciousPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"ignore_instructions", regexp.MustCompile(`(?i)ignore\s+(previous|all|your)\s+instructions`)},
	{"system_prompt", regexp.MustCompile(`(?i)system\s*prompt`)},
	{"you_are_now", regexp.MustCompile(`(?i)you\s+are\s+now`)},
	{"pretend_to_be", regexp.MustCompile(`(?i)pretend\s+to\s+be`)},
	{"act_as", regexp.MustCompile(`(?i)act\s+as\s+(a|an)`)},
	{"script_tag", regexp.MustCompile(`(?i)<script[^>]*>`)},
	{"javascript_uri", regexp.MustCompile(`(?i)javascript:`)},
	{"template_injection", regexp.MustCompile(`\{\{.*\}\}`)},
	{"reveal_prompt", regexp.MustCompile(`(?i)reveal\s+(your|the)\s+(prompt|instructions)`)},
	{"disregard", regexp.MustCompile(`(?i)disregard\s+(previous|all)`)},
	{"admin_mode", regexp.MustCompile(`(?i)admin\s+mode`)},
	{"developer_mode", regexp.MustCompile(`(?i)developer\s+mode`)},
}

var specialChars = regexp.MustCompile(`[^a-zA-Z0-9\s.,;:?!()\-']`)

// Validator checks and sanitizes user input. Each call is stateless; the
// only shared state is the append-only security event log.
type Validator struct {
	minLength int
	maxLength int

	logMu   sync.Mutex
	logFile *os.File
}

// New creates a Validator writing security events under logDir.
func New(cfg models.LimitsConfig, logDir string) (*Validator, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}

	path := filepath.Join(logDir, securityFileName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open security log %s: %w", path, err)
	}

	return &Validator{
		minLength: cfg.MinInputLength,
		maxLength: cfg.MaxInputLength,
		logFile:   file,
	}, nil
}

// Validate trims and checks rawInput. Each step short-circuits on failure.
// Length bounds are in characters, not bytes.
func (v *Validator) Validate(rawInput, sessionID string) models.ValidationResult {
	cleaned := strings.TrimSpace(rawInput)
	length := utf8.RuneCountInString(cleaned)

	if length < v.minLength {
		return models.ValidationResult{Reason: "Please enter a question."}
	}

	if length > v.maxLength {
		return models.ValidationResult{
			Reason: fmt.Sprintf(
				"Question too long. Please keep your question under %d characters (current: %d characters).",
				v.maxLength, length),
		}
	}

	for _, pattern := range suspiciousPatterns {
		if pattern.re.MatchString(cleaned) {
			v.logEvent(sessionID, cleaned, pattern.name)
			return models.ValidationResult{
				Reason:  "Your question contains invalid content. Please rephrase and try again.",
				Flagged: true,
			}
		}
	}

	if ratio := specialCharRatio(cleaned); ratio > maxSpecialCharRatio {
		v.logEvent(sessionID, cleaned, reasonSpecialChars)
		return models.ValidationResult{
			Reason:  "Your question contains unusual characters. Please use standard text.",
			Flagged: true,
		}
	}

	return models.ValidationResult{Valid: true, Sanitized: cleaned}
}

// Close releases the security log.
func (v *Validator) Close() error {
	v.logMu.Lock()
	defer v.logMu.Unlock()
	return v.logFile.Close()
}

func (v *Validator) logEvent(sessionID, content, reason string) {
	preview := content
	if runes := []rune(preview); len(runes) > previewLimit {
		preview = string(runes[:previewLimit]) + "..."
	}

	event := models.SecurityEvent{
		Timestamp:     time.Now().UTC(),
		SessionID:     models.SessionPrefix(sessionID),
		ContentLength: utf8.RuneCountInString(content),
		Preview:       preview,
		Reason:        reason,
	}

	line, err := json.Marshal(event)
	if err != nil {
		fiberlog.Errorf("security: failed to marshal event: %v", err)
		return
	}
	line = append(line, '\n')

	v.logMu.Lock()
	_, err = v.logFile.Write(line)
	v.logMu.Unlock()
	if err != nil {
		fiberlog.Errorf("security: failed to log event: %v", err)
	}
}

func specialCharRatio(s string) float64 {
	total := utf8.RuneCountInString(s)
	if total == 0 {
		return 0
	}
	return float64(len(specialChars.FindAllString(s, -1))) / float64(total)
}
