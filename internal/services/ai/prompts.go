package ai

import (
	"fmt"
	"regexp"
	"strings"
)

// NoClearTitleMarker is the exact reply the model is asked to give when it
// cannot name a single movie.
const NoClearTitleMarker = "NO_CLEAR_MOVIE_TITLE_FOUND"

const identifyTitlePrompt = "Someone is looking for one particular movie and typed: '%s'. " +
	"The text may be the full title, part of it, a misspelling, or a short description of the plot, characters or setting. " +
	"Work out the single most likely full and correct movie title. " +
	"For a description, name the best known movie that fits it (for 'a shark terrorizes a beach town' answer 'Jaws'). " +
	"For a partial or misspelled title, answer with the full official title. " +
	"If the text is too vague, makes no sense, does not describe a movie, or you are not confident about a single title, answer exactly '" + NoClearTitleMarker + "'. " +
	"Reply with the title or that phrase only, without any explanation."

const recommendPrompt = "Take the movie '%s' and think about its plot, genre, pacing, intensity and tone. " +
	"Suggest exactly %d other movies that are similar to it. " +
	"Reply with the titles only, one per line, with no numbering, no bullet points and no extra text."

const exclusionClause = "\n\nDo **not** suggest any of these titles, they were recommended to this user recently: %s. " +
	"Every suggestion must be a title missing from that list."

func titlePrompt(input string) string {
	return fmt.Sprintf(identifyTitlePrompt, input)
}

func recommendationPrompt(movieTitle string, count int, exclude []string) string {
	prompt := fmt.Sprintf(recommendPrompt, movieTitle, count)
	if len(exclude) > 0 {
		prompt += fmt.Sprintf(exclusionClause, strings.Join(exclude, ", "))
	}
	return prompt
}

var (
	titlePrefixes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^the most probable movie title is:?`),
		regexp.MustCompile(`(?i)^it is likely:?`),
		regexp.MustCompile(`(?i)^the movie title is:?`),
		regexp.MustCompile(`(?i)^title:`),
		regexp.MustCompile(`(?i)^movie:`),
		regexp.MustCompile(`^\s*-\s*`),
		regexp.MustCompile(`^\s*\d+[.)]\s+`),
	}
	listPrefix = regexp.MustCompile(`^\s*(\d+[.)]\s+|[-*•]+\s*)`)
)

func unquote(s string) string {
	for _, q := range []string{`"`, `'`} {
		if len(s) >= 2 && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}

// cleanTitle strips the decorations models tend to put around a single title.
func cleanTitle(raw string) string {
	title := strings.TrimSpace(raw)
	for _, prefix := range titlePrefixes {
		title = strings.TrimSpace(prefix.ReplaceAllString(title, ""))
	}
	return unquote(title)
}

// cleanTitles splits a multi-line reply into at most limit distinct titles.
func cleanTitles(raw string, limit int) []string {
	titles := make([]string, 0, limit)
	seen := make(map[string]struct{})
	for _, line := range strings.Split(raw, "\n") {
		title := unquote(strings.TrimSpace(listPrefix.ReplaceAllString(strings.TrimSpace(line), "")))
		if title == "" {
			continue
		}
		key := strings.ToLower(title)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		titles = append(titles, title)
		if len(titles) == limit {
			break
		}
	}
	return titles
}
