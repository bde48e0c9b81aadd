package fields

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/davenull4x/applyforge/internal/ats"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// kbFile is the on-disk shape of the knowledge base.
type kbFile struct {
	FieldMappings      map[string]map[Type]int       `json:"field_mappings"`
	ATSMappings        map[ats.Platform]map[string]Type `json:"ats_specific_mappings"`
	SuccessfulPatterns map[string]int                `json:"successful_patterns"`
}

// KnowledgeBase is a persistent learned mapping from field identifiers to
// semantic types. General mappings accumulate occurrence counts and resolve by
// majority vote; platform-specific mappings are exact and take precedence.
// Every mutation is flushed to disk synchronously.
type KnowledgeBase struct {
	path string
	data kbFile
	log  *zap.Logger
}

// NewKnowledgeBase loads the knowledge base at path, starting empty if the
// file is missing or unreadable. A read failure is a cache miss, not a fatal
// condition.
func NewKnowledgeBase(path string, logger *zap.Logger) *KnowledgeBase {
	kb := &KnowledgeBase{
		path: path,
		log:  logger.Named("knowledge_base"),
		data: kbFile{
			FieldMappings:      map[string]map[Type]int{},
			ATSMappings:        map[ats.Platform]map[string]Type{},
			SuccessfulPatterns: map[string]int{},
		},
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			kb.log.Warn("Failed to read knowledge base, starting empty", zap.Error(err))
		}
		return kb
	}
	var loaded kbFile
	if err := json.Unmarshal(raw, &loaded); err != nil {
		kb.log.Warn("Failed to parse knowledge base, starting empty", zap.Error(err))
		return kb
	}
	if loaded.FieldMappings != nil {
		kb.data.FieldMappings = loaded.FieldMappings
	}
	if loaded.ATSMappings != nil {
		kb.data.ATSMappings = loaded.ATSMappings
	}
	if loaded.SuccessfulPatterns != nil {
		kb.data.SuccessfulPatterns = loaded.SuccessfulPatterns
	}
	kb.log.Info("Loaded knowledge base",
		zap.Int("field_mappings", len(kb.data.FieldMappings)),
		zap.Int("platforms", len(kb.data.ATSMappings)))
	return kb
}

// Learn records a successful fill of identifier as fieldType. The general
// occurrence count always increments; when the platform is known, a
// platform-specific entry is additionally pinned on first sight. The store is
// flushed before Learn returns.
func (kb *KnowledgeBase) Learn(identifier string, fieldType Type, platform ats.Platform) {
	if identifier == "" || fieldType == TypeUnknown {
		return
	}

	if kb.data.FieldMappings[identifier] == nil {
		kb.data.FieldMappings[identifier] = map[Type]int{}
	}
	kb.data.FieldMappings[identifier][fieldType]++
	kb.data.SuccessfulPatterns[string(fieldType)]++

	if platform != ats.Unknown {
		if kb.data.ATSMappings[platform] == nil {
			kb.data.ATSMappings[platform] = map[string]Type{}
		}
		if _, exists := kb.data.ATSMappings[platform][identifier]; !exists {
			kb.data.ATSMappings[platform][identifier] = fieldType
		}
	}

	if err := kb.flush(); err != nil {
		kb.log.Warn("Failed to persist knowledge base", zap.Error(err))
	}
	kb.log.Debug("Learned field mapping",
		zap.String("identifier", identifier),
		zap.String("type", string(fieldType)),
		zap.String("platform", string(platform)))
}

// Lookup returns the learned type for identifier. A platform-specific entry
// wins outright; otherwise the general mapping resolves by majority vote,
// ties broken deterministically by lexicographic type order.
func (kb *KnowledgeBase) Lookup(identifier string, platform ats.Platform) (Type, bool) {
	if platform != ats.Unknown {
		if byID, ok := kb.data.ATSMappings[platform]; ok {
			if t, ok := byID[identifier]; ok {
				return t, true
			}
		}
	}

	counts, ok := kb.data.FieldMappings[identifier]
	if !ok || len(counts) == 0 {
		return TypeUnknown, false
	}

	types := make([]Type, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		if counts[types[i]] != counts[types[j]] {
			return counts[types[i]] > counts[types[j]]
		}
		return types[i] < types[j]
	})
	return types[0], true
}

// Stats summarizes the knowledge base for reporting.
func (kb *KnowledgeBase) Stats() (fieldMappings, platforms, patterns int) {
	return len(kb.data.FieldMappings), len(kb.data.ATSMappings), len(kb.data.SuccessfulPatterns)
}

func (kb *KnowledgeBase) flush() error {
	raw, err := json.MarshalIndent(kb.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal knowledge base: %w", err)
	}
	if dir := filepath.Dir(kb.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create knowledge base dir: %w", err)
		}
	}
	if err := os.WriteFile(kb.path, raw, 0o644); err != nil {
		return fmt.Errorf("write knowledge base: %w", err)
	}
	return nil
}
