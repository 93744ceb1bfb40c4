package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"movieweb/proj/internal/cache"
)

const (
	DefaultRecommendTemperature = 0.7
	DefaultResolveTemperature   = 0.3
	MinTemperature              = 0.0
	MaxTemperature              = 2.0

	RecommendationsCount = 5
	HistoryLength        = 20

	listMaxTokens  = 150
	titleMaxTokens = 50
)

var (
	ErrNoClearTitle  = errors.New("could not identify a movie title from the input")
	ErrNoSuggestions = errors.New("the assistant returned no suggestions")
)

type Completer interface {
	Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
}

type AIService struct {
	log        *slog.Logger
	completer  Completer
	cache      cache.Cache
	historyTTL time.Duration
}

// New returns the service. A nil cache disables the recommendation history.
func New(log *slog.Logger, completer Completer, c cache.Cache, historyTTL time.Duration) *AIService {
	return &AIService{
		log:        log,
		completer:  completer,
		cache:      c,
		historyTTL: historyTTL,
	}
}

// ParseTemperature reads a sampling temperature. Empty, malformed and out of
// range values fall back to def.
func ParseTemperature(raw string, def float64) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	t, err := strconv.ParseFloat(raw, 64)
	if err != nil || t < MinTemperature || t > MaxTemperature {
		return def
	}
	return t
}

// ResolveTitle turns free text (a partial title, a typo, a plot description)
// into a single movie title.
func (s *AIService) ResolveTitle(ctx context.Context, input string) (string, error) {
	const op = "ai.AIService.ResolveTitle"
	log := s.log.With("op", op, "input", input)
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrNoClearTitle
	}
	reply, err := s.completer.Complete(ctx, titlePrompt(input), DefaultResolveTemperature, titleMaxTokens)
	if err != nil {
		log.Error("completion failed", "errMsg", err.Error())
		return "", fmt.Errorf("%s: %w", op, err)
	}
	title := cleanTitle(reply)
	if title == "" || strings.Contains(title, NoClearTitleMarker) {
		log.Info("no clear title")
		return "", ErrNoClearTitle
	}
	log.Info("title resolved", "title", title)
	return title, nil
}

// Recommend asks for movies similar to movieTitle. Titles recently shown to
// userID are excluded and the new ones are remembered. userID 0 means an
// anonymous caller without history.
func (s *AIService) Recommend(ctx context.Context, userID int64, movieTitle string, temperature float64) ([]string, error) {
	const op = "ai.AIService.Recommend"
	log := s.log.With("op", op, "user_id", userID, "movie", movieTitle, "temperature", temperature)
	if temperature < MinTemperature || temperature > MaxTemperature {
		temperature = DefaultRecommendTemperature
	}
	history := s.History(ctx, userID)
	prompt := recommendationPrompt(movieTitle, RecommendationsCount, history)
	log.Debug("sending prompt", "excluded", len(history))
	reply, err := s.completer.Complete(ctx, prompt, temperature, listMaxTokens)
	if err != nil {
		log.Error("completion failed", "errMsg", err.Error())
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	titles := cleanTitles(reply, RecommendationsCount)
	if len(titles) == 0 {
		log.Warn("empty suggestions", "reply", reply)
		return nil, ErrNoSuggestions
	}
	s.remember(ctx, userID, history, titles)
	log.Info("recommendations ready", "titles", titles)
	return titles, nil
}

func historyKey(userID int64) string {
	return "ai:history:" + strconv.FormatInt(userID, 10)
}

// History returns the titles recently recommended to the user, oldest first.
func (s *AIService) History(ctx context.Context, userID int64) []string {
	if s.cache == nil || userID == 0 {
		return nil
	}
	history, ok, err := cache.GetJSON[[]string](ctx, s.cache, historyKey(userID))
	if err != nil {
		s.log.Warn("failed to read recommendation history", "user_id", userID, "errMsg", err.Error())
		return nil
	}
	if !ok {
		return nil
	}
	return history
}

func (s *AIService) remember(ctx context.Context, userID int64, history, titles []string) {
	if s.cache == nil || userID == 0 {
		return
	}
	updated, added := appendHistory(history, titles, HistoryLength)
	if added == 0 {
		return
	}
	if err := cache.SetJSON(ctx, s.cache, historyKey(userID), updated, s.historyTTL); err != nil {
		s.log.Warn("failed to store recommendation history", "user_id", userID, "errMsg", err.Error())
	}
}

// appendHistory adds the titles not yet present and drops the oldest entries
// beyond limit.
func appendHistory(history, titles []string, limit int) (updated []string, added int) {
	updated = append([]string(nil), history...)
	known := make(map[string]struct{}, len(updated))
	for _, title := range updated {
		known[title] = struct{}{}
	}
	for _, title := range titles {
		if _, ok := known[title]; ok {
			continue
		}
		known[title] = struct{}{}
		updated = append(updated, title)
		added++
	}
	if len(updated) > limit {
		updated = updated[len(updated)-limit:]
	}
	return updated, added
}
