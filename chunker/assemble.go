package chunker

import (
	"fmt"
	"strings"

	"github.com/poiesic/weave/core"
	"github.com/poiesic/weave/token"
)

// region is a boundary-delimited run of sentences before budget enforcement.
type region struct {
	text string
	sub  bool
	note string
}

// piece is a budget-sized unit of text, one future chunk.
type piece struct {
	text      string
	sub       bool
	note      string
	oversized bool
}

// memoryLevelFor maps a content type onto its place in the memory hierarchy.
func memoryLevelFor(contentType core.ContentType) core.MemoryLevel {
	switch contentType {
	case core.ContentTypeEpisodic:
		return core.MemoryLevelEpisodic
	case core.ContentTypeWorking:
		return core.MemoryLevelAtomic
	case core.ContentTypePreference:
		return core.MemoryLevelStrategic
	default:
		return core.MemoryLevelSemantic
	}
}

// assemble turns boundary-delimited regions into chunks: enforces the token
// budget, merges undersized regions, applies overlap, derives IDs, and links
// sequence and hierarchy metadata.
func (c *Chunker) assemble(sentences []string, boundaries []Boundary, strategy Strategy, cfg *Config) ([]*core.Chunk, Stats, []string) {
	var warnings []string
	var stats Stats

	regions := buildRegions(sentences, boundaries)
	regions, merged := mergeSmallRegions(regions, cfg.MinChunkSize, c.tokenizer)
	stats.Merged = merged

	// Reserve the overlap out of the budget so overlapped chunks still
	// respect the hard ceiling.
	budget := cfg.MaxTokens - cfg.Overlap

	var pieces []piece
	for _, reg := range regions {
		if c.tokenizer.Count(reg.text) <= budget {
			pieces = append(pieces, piece{text: reg.text, sub: reg.sub, note: reg.note})
			continue
		}
		segments := c.tokenizer.Split(reg.text, budget)
		for i, seg := range segments {
			p := piece{text: seg, sub: reg.sub}
			if i == 0 {
				p.note = reg.note
			}
			if c.tokenizer.Count(seg) > budget {
				p.oversized = true
				stats.Oversized++
				warnings = append(warnings,
					fmt.Sprintf("sentence exceeds maxTokens budget (%d > %d), emitted oversized", c.tokenizer.Count(seg), budget))
			}
			pieces = append(pieces, p)
		}
	}

	// Contents first: IDs derive from them, and links need the IDs.
	contents := make([]string, len(pieces))
	overlaps := make([]int, len(pieces))
	for i, p := range pieces {
		content := p.text
		if cfg.Overlap > 0 && i > 0 && !p.oversized {
			tail := overlapTail(pieces[i-1].text, cfg.Overlap, c.tokenizer)
			// The joining space can push the estimate one token past the
			// ceiling; shed tail words until the joined text fits.
			for tail != "" && c.tokenizer.Count(tail+" "+p.text) > cfg.MaxTokens {
				words := strings.Fields(tail)
				tail = strings.Join(words[1:], " ")
			}
			if tail != "" {
				content = tail + " " + content
				overlaps[i] = c.tokenizer.Count(tail)
			}
		}
		contents[i] = content
	}

	ids := make([]core.ID, len(pieces))
	for i, content := range contents {
		ids[i] = core.ChunkID(cfg.DocID, i, content)
	}

	chunks := make([]*core.Chunk, len(pieces))
	lastTop := -1
	for i, p := range pieces {
		md := core.ChunkMetadata{
			ContentType:   cfg.ContentType,
			MemoryLevel:   memoryLevelFor(cfg.ContentType),
			Strategy:      strategy.Name(),
			SizeTokens:    c.tokenizer.Count(contents[i]),
			OverlapTokens: overlaps[i],
			BoundaryType:  strategy.Boundary(),
		}
		if p.note != "" {
			md.Concepts = append(md.Concepts, p.note)
		}

		if cfg.TemporalLinks {
			if i > 0 {
				md.PreviousChunk = ids[i-1]
			}
			if i < len(pieces)-1 {
				md.NextChunk = ids[i+1]
			}
		}

		if p.sub && lastTop >= 0 {
			md.ParentChunk = ids[lastTop]
			parent := chunks[lastTop].Metadata
			parent.ChildChunks = append(parent.ChildChunks, ids[i])
			chunks[lastTop].Metadata = parent
		}
		if !p.sub {
			lastTop = i
		}

		chunks[i] = &core.Chunk{
			Id:         ids[i],
			DocID:      cfg.DocID,
			SourcePath: cfg.SourcePath,
			Index:      i,
			Content:    contents[i],
			Metadata:   md,
		}
	}

	if cfg.IncludeContext {
		attachContext(chunks, pieces, cfg.ContextWindowSize)
	}

	stats.ChunkCount = len(chunks)
	for i, chunk := range chunks {
		n := chunk.Metadata.SizeTokens
		stats.TotalTokens += n
		if i == 0 || n < stats.MinTokens {
			stats.MinTokens = n
		}
		if n > stats.MaxTokens {
			stats.MaxTokens = n
		}
	}

	return chunks, stats, warnings
}

// buildRegions groups sentences into regions at the given boundaries.
// Out-of-range or unordered boundary indices are dropped.
func buildRegions(sentences []string, boundaries []Boundary) []region {
	starts := []Boundary{{Sentence: 0}}
	last := 0
	for _, b := range boundaries {
		if b.Sentence <= last || b.Sentence >= len(sentences) {
			continue
		}
		starts = append(starts, b)
		last = b.Sentence
	}

	regions := make([]region, 0, len(starts))
	for i, b := range starts {
		end := len(sentences)
		if i+1 < len(starts) {
			end = starts[i+1].Sentence
		}
		regions = append(regions, region{
			text: strings.Join(sentences[b.Sentence:end], " "),
			sub:  b.Sub,
			note: b.Note,
		})
	}
	return regions
}

// mergeSmallRegions folds regions under minChunkSize into their preceding
// neighbor (or following, for a leading region). A lone region is kept as is.
func mergeSmallRegions(regions []region, minChunkSize int, tok token.Tokenizer) ([]region, int) {
	if minChunkSize <= 0 || len(regions) < 2 {
		return regions, 0
	}

	merged := 0
	out := make([]region, 0, len(regions))
	for _, reg := range regions {
		if len(out) > 0 && tok.Count(reg.text) < minChunkSize {
			prev := &out[len(out)-1]
			prev.text = prev.text + " " + reg.text
			if prev.note == "" {
				prev.note = reg.note
			}
			merged++
			continue
		}
		out = append(out, reg)
	}

	// A leading region that is still too small joins its successor.
	if len(out) > 1 && tok.Count(out[0].text) < minChunkSize {
		out[1].text = out[0].text + " " + out[1].text
		out[1].sub = out[0].sub
		if out[1].note == "" {
			out[1].note = out[0].note
		}
		out = out[1:]
		merged++
	}

	return out, merged
}

// overlapTail returns the trailing words of text whose estimated size fits
// within overlap tokens.
func overlapTail(text string, overlap int, tok token.Tokenizer) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	start := len(words)
	for start > 0 {
		candidate := strings.Join(words[start-1:], " ")
		if tok.Count(candidate) > overlap {
			break
		}
		start--
	}
	if start == len(words) {
		return ""
	}
	return strings.Join(words[start:], " ")
}

// attachContext fills ContextBefore/ContextAfter from neighboring pieces,
// window sentences at a time. Pieces are used rather than final contents so
// overlap text is not duplicated into context.
func attachContext(chunks []*core.Chunk, pieces []piece, window int) {
	if window <= 0 {
		return
	}
	for i := range chunks {
		if i > 0 {
			prev := token.SplitSentences(pieces[i-1].text)
			if len(prev) > window {
				prev = prev[len(prev)-window:]
			}
			chunks[i].Metadata.ContextBefore = strings.Join(prev, " ")
		}
		if i < len(chunks)-1 {
			next := token.SplitSentences(pieces[i+1].text)
			if len(next) > window {
				next = next[:window]
			}
			chunks[i].Metadata.ContextAfter = strings.Join(next, " ")
		}
	}
}
