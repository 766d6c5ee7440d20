package usecase

import (
	"path"
	"strings"

	"github.com/arcadeops/manual-search/internal/core/domain"
)

// chunkPrefixLen is how much of a chunk's head must match for two
// page-overlapping chunks to count as the same passage.
const chunkPrefixLen = 200

// findDuplicateChunk reports the first target chunk the source chunk
// duplicates: exact trimmed content match, or overlapping page ranges with
// an identical head.
func findDuplicateChunk(src domain.Chunk, targets []domain.Chunk) *domain.Chunk {
	srcContent := strings.TrimSpace(src.Content)
	srcPrefix := chunkPrefix(srcContent)
	for i := range targets {
		tgtContent := strings.TrimSpace(targets[i].Content)
		if srcContent == tgtContent {
			return &targets[i]
		}
		if pagesOverlap(src, targets[i]) && srcPrefix == chunkPrefix(tgtContent) {
			return &targets[i]
		}
	}
	return nil
}

// chunkEnrichment returns the fields a richer source chunk can contribute to
// its duplicate. Merge fills gaps, it never overwrites.
func chunkEnrichment(src, tgt domain.Chunk) (domain.Chunk, bool) {
	out := tgt
	changed := false
	if out.SectionPath == "" && src.SectionPath != "" {
		out.SectionPath = src.SectionPath
		changed = true
	}
	if out.PageStart == nil && src.PageStart != nil {
		out.PageStart = src.PageStart
		out.PageEnd = src.PageEnd
		changed = true
	}
	return out, changed
}

func pagesOverlap(a, b domain.Chunk) bool {
	if a.PageStart == nil || b.PageStart == nil {
		return false
	}
	aEnd := *a.PageStart
	if a.PageEnd != nil {
		aEnd = *a.PageEnd
	}
	bEnd := *b.PageStart
	if b.PageEnd != nil {
		bEnd = *b.PageEnd
	}
	return *a.PageStart <= bEnd && *b.PageStart <= aEnd
}

func chunkPrefix(content string) string {
	runes := []rune(content)
	if len(runes) <= chunkPrefixLen {
		return string(runes)
	}
	return string(runes[:chunkPrefixLen])
}

// findMatchingFigure matches figures by page number plus either label or
// storage path (full path or basename).
func findMatchingFigure(src domain.Figure, targets []domain.Figure) *domain.Figure {
	for i := range targets {
		tgt := &targets[i]
		if tgt.PageNumber != src.PageNumber {
			continue
		}
		if src.FigureLabel != "" && strings.EqualFold(src.FigureLabel, tgt.FigureLabel) {
			return tgt
		}
		if src.StoragePath != "" && tgt.StoragePath != "" {
			if src.StoragePath == tgt.StoragePath || path.Base(src.StoragePath) == path.Base(tgt.StoragePath) {
				return tgt
			}
		}
	}
	return nil
}

// enrichFigure folds the source figure's extra information into the matched
// target in place: keyword union, empty-field fill, metadata key merge.
// Reports whether anything changed.
func enrichFigure(tgt *domain.Figure, src domain.Figure) bool {
	changed := false

	if merged, grew := unionStrings(tgt.Keywords, src.Keywords); grew {
		tgt.Keywords = merged
		changed = true
	}
	if tgt.Caption == "" && src.Caption != "" {
		tgt.Caption = src.Caption
		changed = true
	}
	if tgt.OCRText == "" && src.OCRText != "" {
		tgt.OCRText = src.OCRText
		changed = true
	}
	if tgt.FigureType == "" && src.FigureType != "" {
		tgt.FigureType = src.FigureType
		changed = true
	}
	if tgt.FigureLabel == "" && src.FigureLabel != "" {
		tgt.FigureLabel = src.FigureLabel
		changed = true
	}
	if len(src.Metadata) > 0 {
		if tgt.Metadata == nil {
			tgt.Metadata = make(map[string]any, len(src.Metadata))
		}
		for k, v := range src.Metadata {
			if _, ok := tgt.Metadata[k]; !ok {
				tgt.Metadata[k] = v
				changed = true
			}
		}
	}
	return changed
}

// mergeManualMetadata merges manual-level metadata non-destructively:
// set-union for tags/aliases, max for page_count and quality_score,
// fill-if-empty for identity fields, concatenation with provenance for
// notes.
func mergeManualMetadata(target, source domain.Manual) domain.Manual {
	out := target

	out.Tags, _ = unionStrings(target.Tags, source.Tags)
	out.Aliases, _ = unionStrings(target.Aliases, source.Aliases)
	if source.PageCount > out.PageCount {
		out.PageCount = source.PageCount
	}
	if source.QualityScore > out.QualityScore {
		out.QualityScore = source.QualityScore
	}
	if out.Manufacturer == "" {
		out.Manufacturer = source.Manufacturer
	}
	if out.Version == "" {
		out.Version = source.Version
	}
	if out.Platform == "" {
		out.Platform = source.Platform
	}
	if source.Notes != "" {
		provenance := "[merged from " + source.Title + "] " + source.Notes
		if out.Notes == "" {
			out.Notes = provenance
		} else {
			out.Notes = out.Notes + "\n" + provenance
		}
	}
	return out
}

// normalizeQuestion lowercases, trims and strips punctuation so trivially
// reworded duplicates collapse to the same key.
func normalizeQuestion(question string) string {
	return strings.Join(splitAlphaNumLower(question), " ")
}

func unionStrings(a, b []string) ([]string, bool) {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, v := range a {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	grew := false
	for _, v := range b {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
		grew = true
	}
	return out, grew
}
