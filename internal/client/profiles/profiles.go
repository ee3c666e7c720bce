// Package profiles manages the profile documents kept in the document
// store and the perceptions other members leave on a profile.
package profiles

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/miroir/internal/client/docstore"
	"github.com/dmitrijs2005/miroir/internal/client/models"
	"github.com/dmitrijs2005/miroir/internal/common"
)

// Collection holds one profile document per uid.
const Collection = "profils"

// Perception is what one member thinks of another.
type Perception struct {
	Author    string    `json:"auteur,omitempty"`
	Text      string    `json:"texte"`
	Sentiment Sentiment `json:"sentiment"`
	CreatedAt time.Time `json:"createdAt"`
}

// Document is the stored profile.
type Document struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	models.Profile
	PhotoURL    string       `json:"photoURL,omitempty"`
	Tier        models.Tier  `json:"tier"`
	Perceptions []Perception `json:"perceptions"`
	Stats       Stats        `json:"stats"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Identity maps the document back onto identity fields.
func (d *Document) Identity() *models.Identity {
	return &models.Identity{
		UID:      d.UID,
		Email:    d.Email,
		Profile:  d.Profile,
		PhotoURL: d.PhotoURL,
		Tier:     d.Tier,
	}
}

type Service struct {
	docs docstore.Store
	now  func() time.Time
}

func NewService(docs docstore.Store) *Service {
	return &Service{docs: docs, now: time.Now}
}

// Create writes the initial document for a new identity, with no
// perceptions yet.
func (s *Service) Create(ctx context.Context, id *models.Identity) error {
	doc, err := docstore.Encode(Document{
		UID:         id.UID,
		Email:       id.Email,
		Profile:     id.Profile,
		PhotoURL:    id.PhotoURL,
		Tier:        id.Tier,
		Perceptions: []Perception{},
		CreatedAt:   s.now().UTC(),
	})
	if err != nil {
		return err
	}
	return s.docs.Put(ctx, Collection, id.UID, doc)
}

// Get returns the document for uid or common.ErrorNotFound.
func (s *Service) Get(ctx context.Context, uid string) (*Document, error) {
	raw, err := s.docs.Get(ctx, Collection, uid)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := docstore.Decode(raw, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Load is Get reduced to identity fields.
func (s *Service) Load(ctx context.Context, uid string) (*models.Identity, error) {
	doc, err := s.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	return doc.Identity(), nil
}

// Update merges the changed fields into the stored document.
func (s *Service) Update(ctx context.Context, uid string, u models.ProfileUpdate) error {
	if u.Empty() {
		return nil
	}
	return s.docs.Update(ctx, Collection, uid, u.Fields())
}

// AddPerception appends p to the profile of uid and recomputes its stats.
func (s *Service) AddPerception(ctx context.Context, uid string, p Perception) (Stats, error) {
	p.Text = strings.TrimSpace(p.Text)
	if !p.Sentiment.Valid() {
		return Stats{}, fmt.Errorf("%w: unknown sentiment %q", common.ErrValidation, p.Sentiment)
	}
	if p.Text == "" {
		return Stats{}, fmt.Errorf("%w: perception text is required", common.ErrValidation)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now().UTC()
	}

	var stats Stats
	err := s.docs.Modify(ctx, Collection, uid, func(raw docstore.Document) (docstore.Document, error) {
		var doc Document
		if err := docstore.Decode(raw, &doc); err != nil {
			return nil, err
		}
		doc.Perceptions = append(doc.Perceptions, p)
		stats = Tally(doc.Perceptions)

		raw["perceptions"] = doc.Perceptions
		raw["stats"] = stats
		return raw, nil
	})
	if err != nil {
		return Stats{}, err
	}
	return stats, nil
}
