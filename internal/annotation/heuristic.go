// Package annotation labels text with topics and keywords and derives the
// follow-up questions an answer raises.
package annotation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"subcon/internal/retrieval"
)

// topicLexicon maps topic labels to cue words. Labels follow the tweet-topic
// taxonomy.
var topicLexicon = map[string][]string{
	"arts_&_culture":           {"art", "artist", "museum", "painting", "culture", "literature", "poetry", "novel", "theatre", "history"},
	"business_&_entrepreneurs": {"business", "company", "market", "startup", "revenue", "investor", "economy", "finance", "profit", "entrepreneur"},
	"celebrity_&_pop_culture":  {"celebrity", "famous", "star", "influencer", "gossip", "award"},
	"diaries_&_daily_life":     {"today", "morning", "routine", "daily", "weekend", "home"},
	"family":                   {"family", "parent", "child", "children", "mother", "father", "sibling"},
	"fashion_&_style":          {"fashion", "style", "clothing", "outfit", "designer"},
	"film_tv_&_video":          {"film", "movie", "television", "tv", "series", "video", "cinema"},
	"fitness_&_health":         {"health", "fitness", "exercise", "diet", "disease", "medical", "sleep", "nutrition", "doctor"},
	"food_&_dining":            {"food", "recipe", "restaurant", "cooking", "meal", "dining"},
	"gaming":                   {"game", "gaming", "player", "console", "esports"},
	"learning_&_educational":   {"learn", "learning", "education", "school", "study", "classroom", "university", "explain", "knowledge"},
	"music":                    {"music", "song", "album", "band", "concert", "singer"},
	"news_&_social_concern":    {"government", "policy", "election", "climate", "war", "law", "society", "rights", "crisis"},
	"other_hobbies":            {"hobby", "garden", "gardening", "craft", "collecting", "photography"},
	"relationships":            {"relationship", "friend", "friendship", "partner", "dating", "love"},
	"science_&_technology":     {"science", "scientific", "technology", "software", "computer", "physics", "biology", "chemistry", "research", "energy", "gravity", "moon", "planet", "ai", "data"},
	"sports":                   {"sport", "sports", "football", "soccer", "team", "match", "olympic", "tennis"},
	"travel_&_adventure":       {"travel", "trip", "journey", "adventure", "flight", "tourism", "country"},
	"youth_&_student_life":     {"student", "college", "campus", "homework", "teen"},
}

var cueToTopics = func() map[string][]string {
	m := make(map[string][]string)
	for topic, cues := range topicLexicon {
		for _, c := range cues {
			m[c] = append(m[c], topic)
		}
	}
	return m
}()

// HeuristicAnnotator extracts keywords by term frequency and topics by
// lexicon lookup. It needs no model.
type HeuristicAnnotator struct {
	MaxKeywords int
	MaxTopics   int
}

// NewHeuristicAnnotator returns an annotator keeping at most maxKeywords.
func NewHeuristicAnnotator(maxKeywords int) *HeuristicAnnotator {
	return &HeuristicAnnotator{MaxKeywords: maxKeywords, MaxTopics: 3}
}

// ExtractKeywords returns the most frequent non-stop-word terms, ties broken
// by first occurrence.
func (a *HeuristicAnnotator) ExtractKeywords(_ context.Context, text string) ([]string, error) {
	terms := retrieval.Terms(text)
	counts := make(map[string]int, len(terms))
	var order []string
	for _, t := range terms {
		if len(t) < 3 {
			continue
		}
		if counts[t] == 0 {
			order = append(order, t)
		}
		counts[t]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	return capList(order, a.MaxKeywords), nil
}

// ExtractTopics returns the labels whose cue words occur in text, strongest
// first.
func (a *HeuristicAnnotator) ExtractTopics(_ context.Context, text string) ([]string, error) {
	scores := make(map[string]int)
	for _, t := range retrieval.Terms(text) {
		matched, ok := cueToTopics[t]
		if !ok {
			matched = cueToTopics[strings.TrimSuffix(t, "s")]
		}
		for _, topic := range matched {
			scores[topic]++
		}
	}
	topics := make([]string, 0, len(scores))
	for topic := range scores {
		topics = append(topics, topic)
	}
	sort.Slice(topics, func(i, j int) bool {
		if scores[topics[i]] != scores[topics[j]] {
			return scores[topics[i]] > scores[topics[j]]
		}
		return topics[i] < topics[j]
	})
	return capList(topics, a.MaxTopics), nil
}

var questionStarters = []string{
	"What is",
	"How does",
	"Why is",
	"What are the implications of",
	"Explain how",
	"What role does",
	"What factors contribute to",
}

// HeuristicFollowups builds questions from the opening words of the first
// sentences of a text.
type HeuristicFollowups struct {
	Max int
}

// DeriveFollowups splits text into sentences longer than ten characters and,
// for each of the first Max, pairs a starter phrase with its first three
// words. Sentences of five words or fewer yield no question.
func (f HeuristicFollowups) DeriveFollowups(_ context.Context, text string) ([]string, error) {
	max := f.Max
	if max <= 0 {
		max = 3
	}

	var sentences []string
	for _, s := range strings.Split(text, ".") {
		if s = strings.TrimSpace(s); len(s) > 10 {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) > max {
		sentences = sentences[:max]
	}

	var questions []string
	for i, s := range sentences {
		words := strings.Fields(s)
		if len(words) <= 5 {
			continue
		}
		starter := questionStarters[i%len(questionStarters)]
		questions = append(questions, fmt.Sprintf("%s %s?", starter, strings.Join(words[:3], " ")))
	}
	return questions, nil
}

func capList(list []string, n int) []string {
	if n > 0 && len(list) > n {
		return list[:n]
	}
	return list
}
