// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package metadata

import (
	"context"
	"log/slog"
)

// # Resolution

// Resolved is the final metadata for one ingested file after merging the
// container-internal document, the filename heuristics and, when consulted,
// the AI assistant.
type Resolved struct {
	Title     string
	Author    string
	Number    float64
	Volume    *float64
	Year      *int
	IsOneShot bool
}

// Resolver merges the three metadata sources under a fixed precedence.
type Resolver struct {
	ai     *AIClient
	logger *slog.Logger
}

/*
NewResolver wires a resolver.

Parameters:
  - ai: *AIClient (May be nil; resolution then runs without the fallback)
  - logger: *slog.Logger

Returns:
  - *Resolver: Ready to use
*/
func NewResolver(ai *AIClient, logger *slog.Logger) *Resolver {
	return &Resolver{ai: ai, logger: logger}
}

/*
Resolve produces the metadata for one file.

Description: Precedence per field is internal, then heuristic, then AI, by
presence rather than truthiness, so an explicit zero from a higher source
wins. IsOneShot always comes from the heuristic cascade. The AI assistant is
consulted only when the pre-AI merge is low-confidence (unresolved title, or
a zero chapter number on a non-one-shot), and its failure is never fatal.

Parameters:
  - context: context.Context
  - filePath: string (Archive on disk, for internal metadata)
  - originalName: string (Upload filename, for heuristics and the AI prompt)

Returns:
  - Resolved: Always a complete result; resolution itself cannot fail
*/
func (resolver *Resolver) Resolve(context context.Context, filePath string, originalName string) Resolved {
	heuristic := Parse(originalName)

	internal, err := ExtractInternal(context, filePath)
	if err != nil {
		// No contribution from the container; the heuristics carry on.
		resolver.logger.Warn("internal_metadata_failed",
			slog.String("file", originalName),
			slog.String("error", err.Error()),
		)
		internal = nil
	}
	if internal == nil {
		internal = &Internal{}
	}

	resolved := merge(internal, heuristic, nil)

	if resolver.ai != nil && lowConfidence(resolved) {
		guess, err := resolver.ai.GuessFromFilename(context, originalName)
		if err != nil {
			resolver.logger.Warn("ai_fallback_failed",
				slog.String("file", originalName),
				slog.String("error", err.Error()),
			)
		} else {
			resolver.logger.Info("ai_fallback_used",
				slog.String("file", originalName),
				slog.String("series", guess.Series),
			)
			resolved = merge(internal, heuristic, guess)
		}
	}

	return resolved
}

// lowConfidence reports whether the pre-AI merge is too weak to file under.
func lowConfidence(resolved Resolved) bool {
	if resolved.Title == UnknownTitle || isGenericTitle(resolved.Title) {
		return true
	}
	return resolved.Number == 0 && !resolved.IsOneShot
}

// merge applies the per-field precedence. guess may be nil.
func merge(internal *Internal, heuristic Parsed, guess *AIGuess) Resolved {
	resolved := Resolved{
		Author:    internal.Author,
		IsOneShot: heuristic.IsOneShot,
	}

	// Title: internal unless rejected, then heuristic, then AI, then sentinel.
	switch {
	case internal.Title != "" && !isGenericTitle(internal.Title):
		resolved.Title = internal.Title
	case heuristic.Title != UnknownTitle:
		resolved.Title = heuristic.Title
	case guess != nil && guess.Series != "":
		resolved.Title = guess.Series
	default:
		resolved.Title = UnknownTitle
	}

	// Numeric fields go by presence, so a legitimate zero is preserved.
	heuristicNumber := heuristic.Number
	resolved.Number = firstFloat(0, internal.Number, &heuristicNumber, aiNumber(guess))
	if volume := firstFloatPtr(internal.Volume, heuristic.Volume, aiVolume(guess)); volume != nil {
		resolved.Volume = volume
	}
	if year := firstIntPtr(internal.Year, heuristic.Year, aiYear(guess)); year != nil {
		resolved.Year = year
	}

	return resolved
}

func aiNumber(guess *AIGuess) *float64 {
	if guess == nil {
		return nil
	}
	return guess.Number
}

func aiVolume(guess *AIGuess) *float64 {
	if guess == nil {
		return nil
	}
	return guess.Volume
}

func aiYear(guess *AIGuess) *int {
	if guess == nil {
		return nil
	}
	return guess.Year
}

func firstFloat(fallback float64, candidates ...*float64) float64 {
	for _, candidate := range candidates {
		if candidate != nil {
			return *candidate
		}
	}
	return fallback
}

func firstFloatPtr(candidates ...*float64) *float64 {
	for _, candidate := range candidates {
		if candidate != nil {
			return candidate
		}
	}
	return nil
}

func firstIntPtr(candidates ...*int) *int {
	for _, candidate := range candidates {
		if candidate != nil {
			return candidate
		}
	}
	return nil
}
