// Package models defines the client-side data models shared by the session,
// gate and profile packages.
package models

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Tier is a subscription level. Tiers are ordered: a higher tier unlocks
// everything a lower one does.
type Tier int

const (
	TierFree Tier = iota
	TierBasic
	TierPremium
	TierUnlimited
)

var tierNames = [...]string{
	TierFree:      "free",
	TierBasic:     "basic",
	TierPremium:   "premium",
	TierUnlimited: "unlimited",
}

func (t Tier) String() string {
	if t < 0 || int(t) >= len(tierNames) {
		return fmt.Sprintf("tier(%d)", int(t))
	}
	return tierNames[t]
}

// ParseTier accepts the tier names used by the subscription page
// ("basic", "premium", "unlimited") plus "free"/"" for no subscription.
func ParseTier(s string) (Tier, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return TierFree, nil
	}
	for i, name := range tierNames {
		if name == s {
			return Tier(i), nil
		}
	}
	return TierFree, fmt.Errorf("unknown tier %q", s)
}

func (t Tier) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Tier) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseTier(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalYAML and UnmarshalYAML let destination tables name tiers.
func (t Tier) MarshalYAML() (any, error) {
	return t.String(), nil
}

func (t *Tier) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseTier(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Profile holds the optional fields collected at sign up.
type Profile struct {
	FirstName string   `json:"prenom,omitempty"`
	LastName  string   `json:"nom,omitempty"`
	BirthDate string   `json:"dateNaissance,omitempty"`
	Interests []string `json:"interets,omitempty"`
}

// ProfileUpdate is a partial update; nil fields are left untouched.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	BirthDate *string
	Interests *[]string
	PhotoURL  *string
	Tier      *Tier
}

// Empty reports whether the update changes nothing.
func (u ProfileUpdate) Empty() bool {
	return u.FirstName == nil && u.LastName == nil && u.BirthDate == nil &&
		u.Interests == nil && u.PhotoURL == nil && u.Tier == nil
}

// Fields renders the update as a document patch using the persisted field names.
func (u ProfileUpdate) Fields() map[string]any {
	m := make(map[string]any)
	if u.FirstName != nil {
		m["prenom"] = *u.FirstName
	}
	if u.LastName != nil {
		m["nom"] = *u.LastName
	}
	if u.BirthDate != nil {
		m["dateNaissance"] = *u.BirthDate
	}
	if u.Interests != nil {
		m["interets"] = normalizeInterests(*u.Interests)
	}
	if u.PhotoURL != nil {
		m["photoURL"] = *u.PhotoURL
	}
	if u.Tier != nil {
		m["tier"] = u.Tier.String()
	}
	return m
}

// Account is what the identity provider knows about a user.
type Account struct {
	UID   string
	Email string
}

// Identity is the signed-in user of the running client.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Profile
	PhotoURL string `json:"photoURL,omitempty"`
	Tier     Tier   `json:"tier"`
}

// Valid reports whether a decoded identity carries its natural keys.
func (i *Identity) Valid() bool {
	return i != nil && strings.TrimSpace(i.UID) != "" && strings.TrimSpace(i.Email) != ""
}

// Clone returns a deep copy; nil stays nil.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	c.Interests = slices.Clone(i.Interests)
	return &c
}

// DisplayName is "prenom nom" when known, the email otherwise.
func (i *Identity) DisplayName() string {
	name := strings.TrimSpace(i.FirstName + " " + i.LastName)
	if name == "" {
		return i.Email
	}
	return name
}

// MergeProfile copies the non-empty fields of p into the identity.
func (i *Identity) MergeProfile(p Profile) {
	if p.FirstName != "" {
		i.FirstName = p.FirstName
	}
	if p.LastName != "" {
		i.LastName = p.LastName
	}
	if p.BirthDate != "" {
		i.BirthDate = p.BirthDate
	}
	if p.Interests != nil {
		i.Interests = normalizeInterests(p.Interests)
	}
}

// Apply returns a copy of the identity with u applied.
func (i *Identity) Apply(u ProfileUpdate) *Identity {
	c := i.Clone()
	if u.FirstName != nil {
		c.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		c.LastName = *u.LastName
	}
	if u.BirthDate != nil {
		c.BirthDate = *u.BirthDate
	}
	if u.Interests != nil {
		c.Interests = normalizeInterests(*u.Interests)
	}
	if u.PhotoURL != nil {
		c.PhotoURL = *u.PhotoURL
	}
	if u.Tier != nil {
		c.Tier = *u.Tier
	}
	return c
}

// normalizeInterests treats interests as a set: trimmed, deduplicated,
// first occurrence order kept.
func normalizeInterests(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
