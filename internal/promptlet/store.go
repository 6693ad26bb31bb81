package promptlet

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/sant0-9/promptit/internal/storage"
)

// Store persists promptlets in two buckets, bundled defaults and user
// customs, each kept in its own storage key.
type Store struct {
	kv           storage.KV
	logger       *zap.Logger
	defaultModel string
	now          func() time.Time

	mu sync.Mutex
}

// NewStore creates a store over kv. defaultModel fills promptlets saved
// without a model.
func NewStore(kv storage.KV, logger *zap.Logger, defaultModel string) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultModel == "" {
		defaultModel = DefaultModel
	}
	return &Store{
		kv:           kv,
		logger:       logger,
		defaultModel: defaultModel,
		now:          time.Now,
	}
}

// List returns every promptlet, defaults first then customs, each in index
// order. The bundled set is installed on first run and a legacy flat list
// is migrated into the two buckets.
func (s *Store) List(ctx context.Context) ([]Promptlet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(ctx)
}

// Active returns the promptlets shown in the menu, in menu order.
func (s *Store) Active(ctx context.Context) ([]Promptlet, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, p := range all {
		if p.IsActive {
			active = append(active, p)
		}
	}
	return active, nil
}

// Save replaces the stored set. Slice order becomes index order within each
// bucket.
func (s *Store) Save(ctx context.Context, all []Promptlet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, all)
}

// ResetDefaults regenerates the bundled promptlets. Customs are kept; a
// custom whose name now collides with a bundled one is renamed.
func (s *Store) ResetDefaults(ctx context.Context) ([]Promptlet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, customs, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	defaults, err := Bundled(s.now())
	if err != nil {
		return nil, err
	}

	taken := names(defaults)
	for i := range customs {
		c := &customs[i]
		if taken[foldName(c.Name)] {
			renamed := uniqueName(c.Name, taken)
			s.logger.Warn("custom promptlet renamed after reset",
				zap.String("name", c.Name), zap.String("renamed", renamed))
			c.Name = renamed
		}
		taken[foldName(c.Name)] = true
	}

	if err := s.write(ctx, defaults, customs); err != nil {
		return nil, err
	}
	return append(defaults, customs...), nil
}

// Get resolves ref as an exact name, a case-insensitive name or a menu id.
func (s *Store) Get(ctx context.Context, ref string) (Promptlet, error) {
	all, err := s.List(ctx)
	if err != nil {
		return Promptlet{}, err
	}
	i, err := find(all, ref)
	if err != nil {
		return Promptlet{}, err
	}
	return all[i], nil
}

// Upsert adds p when original is empty, otherwise replaces the custom
// promptlet named original, keeping its order and visibility. The saved
// promptlet is returned.
func (s *Store) Upsert(ctx context.Context, p Promptlet, original string) (Promptlet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.list(ctx)
	if err != nil {
		return Promptlet{}, err
	}

	p.Normalize(s.defaultModel)
	if p.Name == "" {
		return Promptlet{}, invalid("name", "is required")
	}
	ts := s.now().UnixMilli()
	p.IsDefault = false
	p.IsActive = true
	p.DefaultIndex = -1
	p.LastModified = ts

	if original == "" {
		if taken := names(all); taken[foldName(p.Name)] {
			return Promptlet{}, invalid("name", "a promptlet named %q already exists", p.Name)
		}
		p.CreatedAt = ts
		all = append(all, p)
		return p, s.save(ctx, all)
	}

	i, err := find(all, original)
	if err != nil {
		return Promptlet{}, err
	}
	if all[i].IsDefault {
		return Promptlet{}, invalid("name", "%q is bundled and cannot be edited; clone it instead", all[i].Name)
	}
	for j, other := range all {
		if j != i && foldName(other.Name) == foldName(p.Name) {
			return Promptlet{}, invalid("name", "a promptlet named %q already exists", p.Name)
		}
	}
	p.CreatedAt = all[i].CreatedAt
	p.CustomIndex = all[i].CustomIndex
	p.IsActive = all[i].IsActive
	all[i] = p
	return p, s.save(ctx, all)
}

// Clone copies the named promptlet into a new active custom named
// "<name> (Copy)".
func (s *Store) Clone(ctx context.Context, name string) (Promptlet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.list(ctx)
	if err != nil {
		return Promptlet{}, err
	}
	i, err := find(all, name)
	if err != nil {
		return Promptlet{}, err
	}

	c := all[i]
	c.OutputStructure = append([]string(nil), c.OutputStructure...)
	c.Name = uniqueName(c.Name, names(all))
	c.IsDefault = false
	c.IsActive = true
	c.DefaultIndex = -1
	c.CustomIndex = len(all)
	c.CreatedAt = s.now().UnixMilli()
	c.LastModified = c.CreatedAt

	return c, s.save(ctx, append(all, c))
}

// Delete removes a custom promptlet. Bundled ones can only be deactivated.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.list(ctx)
	if err != nil {
		return err
	}
	i, err := find(all, name)
	if err != nil {
		return err
	}
	if all[i].IsDefault {
		return invalid("name", "%q is bundled and cannot be deleted; disable it instead", all[i].Name)
	}
	return s.save(ctx, append(all[:i], all[i+1:]...))
}

// SetActive shows or hides a promptlet in the menu.
func (s *Store) SetActive(ctx context.Context, name string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.list(ctx)
	if err != nil {
		return err
	}
	i, err := find(all, name)
	if err != nil {
		return err
	}
	all[i].IsActive = active
	all[i].LastModified = s.now().UnixMilli()
	return s.save(ctx, all)
}

// Move places the named promptlet at position to within its own bucket.
// Positions outside the bucket are clamped.
func (s *Store) Move(ctx context.Context, name string, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	defaults, customs, err := s.load(ctx)
	if err != nil {
		return err
	}

	i, err := find(append(append([]Promptlet(nil), defaults...), customs...), name)
	if err != nil {
		return err
	}
	if i < len(defaults) {
		defaults = move(defaults, i, to)
	} else {
		customs = move(customs, i-len(defaults), to)
	}
	return s.write(ctx, defaults, customs)
}

func move(list []Promptlet, from, to int) []Promptlet {
	to = max(0, min(to, len(list)-1))
	p := list[from]
	list = append(list[:from], list[from+1:]...)
	list = append(list[:to], append([]Promptlet{p}, list[to:]...)...)
	return list
}

func (s *Store) list(ctx context.Context) ([]Promptlet, error) {
	defaults, customs, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return append(defaults, customs...), nil
}

func (s *Store) save(ctx context.Context, all []Promptlet) error {
	var defaults, customs []Promptlet
	taken := make(map[string]bool, len(all))
	for _, p := range all {
		p.Normalize(s.defaultModel)
		if p.Name == "" {
			return invalid("name", "is required")
		}
		key := foldName(p.Name)
		if taken[key] {
			return invalid("name", "duplicate name %q", p.Name)
		}
		taken[key] = true

		if p.IsDefault {
			defaults = append(defaults, p)
		} else {
			customs = append(customs, p)
		}
	}
	return s.write(ctx, defaults, customs)
}

func (s *Store) load(ctx context.Context) (defaults, customs []Promptlet, err error) {
	values, err := s.kv.Get(ctx,
		storage.KeyDefaultPromptlets,
		storage.KeyCustomPromptlets,
		storage.KeyLegacyPromptlets,
		storage.KeyInitialized,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("load promptlets: %w", err)
	}

	rawDefaults, hasDefaults := values[storage.KeyDefaultPromptlets]
	rawCustoms, hasCustoms := values[storage.KeyCustomPromptlets]
	rawLegacy, hasLegacy := values[storage.KeyLegacyPromptlets]

	if hasDefaults {
		if err := json.Unmarshal(rawDefaults, &defaults); err != nil {
			return nil, nil, fmt.Errorf("decode %s: %w", storage.KeyDefaultPromptlets, err)
		}
	}
	if hasCustoms {
		if err := json.Unmarshal(rawCustoms, &customs); err != nil {
			return nil, nil, fmt.Errorf("decode %s: %w", storage.KeyCustomPromptlets, err)
		}
	}

	dirty := false
	if hasLegacy {
		dirty = true
		if !hasDefaults && !hasCustoms {
			var legacy []Promptlet
			if err := json.Unmarshal(rawLegacy, &legacy); err != nil {
				return nil, nil, fmt.Errorf("decode %s: %w", storage.KeyLegacyPromptlets, err)
			}
			for _, p := range legacy {
				if p.IsDefault {
					defaults = append(defaults, p)
				} else {
					customs = append(customs, p)
				}
			}
			s.logger.Info("migrating legacy promptlet list",
				zap.Int("defaults", len(defaults)), zap.Int("customs", len(customs)))
		}
	}

	var initialized bool
	if raw, ok := values[storage.KeyInitialized]; ok {
		if err := json.Unmarshal(raw, &initialized); err != nil {
			return nil, nil, fmt.Errorf("decode %s: %w", storage.KeyInitialized, err)
		}
	}
	if !initialized {
		dirty = true
		if len(defaults) == 0 {
			if defaults, err = Bundled(s.now()); err != nil {
				return nil, nil, err
			}
			s.logger.Info("installed bundled promptlets", zap.Int("count", len(defaults)))
		}
	}

	order(defaults, true)
	order(customs, false)

	if dirty {
		if err := s.write(ctx, defaults, customs); err != nil {
			return nil, nil, err
		}
	}
	return defaults, customs, nil
}

// write densifies both buckets and stores them, retiring the legacy key.
func (s *Store) write(ctx context.Context, defaults, customs []Promptlet) error {
	defaults = densify(defaults, true)
	customs = densify(customs, false)

	err := s.kv.Set(ctx, map[string]any{
		storage.KeyDefaultPromptlets: defaults,
		storage.KeyCustomPromptlets:  customs,
		storage.KeyInitialized:       true,
	})
	if err != nil {
		return fmt.Errorf("save promptlets: %w", err)
	}

	values, err := s.kv.Get(ctx, storage.KeyLegacyPromptlets)
	if err != nil {
		return fmt.Errorf("check legacy promptlets: %w", err)
	}
	if _, ok := values[storage.KeyLegacyPromptlets]; ok {
		if err := s.kv.Remove(ctx, storage.KeyLegacyPromptlets); err != nil {
			return fmt.Errorf("remove legacy promptlets: %w", err)
		}
	}
	return nil
}

// order sorts a bucket by its index; records without one keep their
// stored position.
func order(list []Promptlet, isDefault bool) {
	for i := range list {
		p := &list[i]
		p.IsDefault = isDefault
		if isDefault && p.DefaultIndex < 0 {
			p.DefaultIndex = i
		}
		if !isDefault && p.CustomIndex < 0 {
			p.CustomIndex = i
		}
	}
	sort.SliceStable(list, func(a, b int) bool {
		return list[a].Index() < list[b].Index()
	})
}

func densify(list []Promptlet, isDefault bool) []Promptlet {
	if list == nil {
		return []Promptlet{}
	}
	for i := range list {
		p := &list[i]
		p.IsDefault = isDefault
		if isDefault {
			p.DefaultIndex, p.CustomIndex = i, -1
		} else {
			p.DefaultIndex, p.CustomIndex = -1, i
		}
	}
	return list
}

func find(all []Promptlet, ref string) (int, error) {
	for i, p := range all {
		if p.Name == ref {
			return i, nil
		}
	}
	for i, p := range all {
		if foldName(p.Name) == foldName(ref) {
			return i, nil
		}
	}
	if _, safe, err := ParseMenuID(ref); err == nil {
		for i, p := range all {
			if safeName(p.Name) == safe {
				return i, nil
			}
		}
	}

	candidates := make([]string, len(all))
	for i, p := range all {
		candidates[i] = p.Name
	}
	if matches := fuzzy.Find(ref, candidates); len(matches) > 0 {
		return -1, fmt.Errorf("%w: %q (did you mean %q?)", ErrNotFound, ref, matches[0].Str)
	}
	return -1, fmt.Errorf("%w: %q", ErrNotFound, ref)
}

// foldName is the key names are compared by: case-insensitive and blind to
// Unicode composition, so "Café" typed two ways is one name.
func foldName(name string) string {
	return strings.ToLower(norm.NFC.String(name))
}

func names(all []Promptlet) map[string]bool {
	taken := make(map[string]bool, len(all))
	for _, p := range all {
		taken[foldName(p.Name)] = true
	}
	return taken
}

// uniqueName appends " (Copy)" to name until it is not taken.
func uniqueName(name string, taken map[string]bool) string {
	candidate := name + " (Copy)"
	for taken[foldName(candidate)] {
		candidate += " (Copy)"
	}
	return candidate
}
