// Package catalog serves the read-only peptide, team and blog reference data
// embedded in the binary.
package catalog

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"peptideprofessor/calculator"
)

//go:embed data/*.yaml
var dataFS embed.FS

// ErrNotFound is returned for unknown slugs and category keys.
var ErrNotFound = errors.New("not found")

type Citation struct {
	Title   string `yaml:"title" json:"title"`
	Authors string `yaml:"authors" json:"authors"`
	Journal string `yaml:"journal" json:"journal"`
	Year    string `yaml:"year" json:"year"`
	DOI     string `yaml:"doi" json:"doi"`
}

type Peptide struct {
	Name              string               `yaml:"name" json:"name"`
	Slug              string               `yaml:"slug" json:"slug"`
	UnitClass         calculator.UnitClass `yaml:"unit_class" json:"unit_class"`
	Aliases           []string             `yaml:"aliases" json:"aliases,omitempty"`
	FDAApproved       bool                 `yaml:"fdaApproved" json:"fdaApproved"`
	WADABanned        *bool                `yaml:"wadaBanned" json:"wadaBanned,omitempty"`
	ApprovedFor       []string             `yaml:"approvedFor" json:"approvedFor,omitempty"`
	ResearchStatus    string               `yaml:"researchStatus" json:"researchStatus,omitempty"`
	Description       string               `yaml:"description" json:"description"`
	Benefits          []string             `yaml:"benefits" json:"benefits"`
	Dosage            string               `yaml:"dosage" json:"dosage"`
	Mechanism         string               `yaml:"mechanism" json:"mechanism"`
	ResearchFindings  []string             `yaml:"researchFindings" json:"researchFindings,omitempty"`
	SafetyNote        string               `yaml:"safetyNote" json:"safetyNote,omitempty"`
	AthleteWarning    string               `yaml:"athleteWarning" json:"athleteWarning,omitempty"`
	SideEffects       []string             `yaml:"sideEffects" json:"sideEffects,omitempty"`
	Contraindications []string             `yaml:"contraindications" json:"contraindications,omitempty"`
	ChemicalMakeup    string               `yaml:"chemicalMakeup" json:"chemicalMakeup,omitempty"`
	Routes            []string             `yaml:"routes" json:"routes,omitempty"`
	Citations         []Citation           `yaml:"citations" json:"citations,omitempty"`
	JSONLD            map[string]any       `yaml:"jsonLd" json:"jsonLd,omitempty"`
}

type Category struct {
	Key         string    `yaml:"key" json:"-"`
	Title       string    `yaml:"title" json:"title"`
	Status      string    `yaml:"status" json:"status,omitempty"`
	Description string    `yaml:"description" json:"description"`
	Peptides    []Peptide `yaml:"peptides" json:"peptides"`
}

// Categories marshals as a JSON object keyed by category key, in
// declaration order.
type Categories []Category

func (cs Categories) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range cs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type TeamMember struct {
	Name        string `yaml:"name" json:"name"`
	Title       string `yaml:"title" json:"title"`
	Specialty   string `yaml:"specialty" json:"specialty"`
	Experience  string `yaml:"experience" json:"experience"`
	Description string `yaml:"description" json:"description"`
}

type BlogPost struct {
	ID               int    `yaml:"id" json:"id"`
	Title            string `yaml:"title" json:"title"`
	Category         string `yaml:"category" json:"category"`
	Image            string `yaml:"image" json:"image"`
	Slug             string `yaml:"slug" json:"slug"`
	Excerpt          string `yaml:"excerpt" json:"excerpt"`
	Content          string `yaml:"-" json:"content,omitempty"`
	Author           string `yaml:"author" json:"author,omitempty"`
	AuthorBio        string `yaml:"author_bio" json:"author_bio,omitempty"`
	Date             string `yaml:"date" json:"date,omitempty"`
	LastUpdated      string `yaml:"last_updated" json:"last_updated,omitempty"`
	ReadingTime      string `yaml:"reading_time" json:"reading_time,omitempty"`
	MetaTitle        string `yaml:"meta_title" json:"meta_title,omitempty"`
	MetaDescription  string `yaml:"meta_description" json:"meta_description,omitempty"`
	Canonical        string `yaml:"canonical" json:"canonical,omitempty"`
	FeaturedImageAlt string `yaml:"featured_image_alt" json:"featured_image_alt,omitempty"`
}

// Catalog is immutable after Load and safe for concurrent reads.
type Catalog struct {
	categories Categories
	byKey      map[string]int
	bySlug     map[string]Peptide
	team       []TeamMember
	blog       []BlogPost
	blogBySlug map[string]int
}

// Load parses the embedded data files.
func Load() (*Catalog, error) {
	read := func(name string) ([]byte, error) {
		b, err := dataFS.ReadFile("data/" + name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return b, nil
	}
	peptides, err := read("peptides.yaml")
	if err != nil {
		return nil, err
	}
	team, err := read("team.yaml")
	if err != nil {
		return nil, err
	}
	blog, err := read("blog.yaml")
	if err != nil {
		return nil, err
	}
	return Parse(peptides, team, blog)
}

// Parse builds a Catalog from YAML documents. Peptides without a declared
// unit_class are classified from their slug and dosage text.
func Parse(peptidesYAML, teamYAML, blogYAML []byte) (*Catalog, error) {
	c := &Catalog{
		byKey:      make(map[string]int),
		bySlug:     make(map[string]Peptide),
		blogBySlug: make(map[string]int),
	}
	if err := yaml.Unmarshal(peptidesYAML, &c.categories); err != nil {
		return nil, fmt.Errorf("parse peptides: %w", err)
	}
	if err := yaml.Unmarshal(teamYAML, &c.team); err != nil {
		return nil, fmt.Errorf("parse team: %w", err)
	}
	if err := yaml.Unmarshal(blogYAML, &c.blog); err != nil {
		return nil, fmt.Errorf("parse blog: %w", err)
	}

	for ci := range c.categories {
		cat := &c.categories[ci]
		if cat.Key == "" {
			return nil, fmt.Errorf("category %d has no key", ci)
		}
		if _, dup := c.byKey[cat.Key]; dup {
			return nil, fmt.Errorf("duplicate category %q", cat.Key)
		}
		c.byKey[cat.Key] = ci
		for pi := range cat.Peptides {
			p := &cat.Peptides[pi]
			if p.Slug == "" {
				return nil, fmt.Errorf("category %q: peptide %d has no slug", cat.Key, pi)
			}
			if p.UnitClass == "" {
				p.UnitClass = Classify(*p)
			} else if !p.UnitClass.Valid() {
				return nil, fmt.Errorf("peptide %q: unknown unit_class %q", p.Slug, p.UnitClass)
			}
			// A peptide listed in several categories resolves to its first listing.
			if _, seen := c.bySlug[p.Slug]; !seen {
				c.bySlug[p.Slug] = *p
			}
		}
	}
	for i, post := range c.blog {
		if _, dup := c.blogBySlug[post.Slug]; !dup {
			c.blogBySlug[post.Slug] = i
		}
	}
	return c, nil
}

func (c *Catalog) Categories() Categories {
	return c.categories
}

func (c *Catalog) Category(key string) (Category, error) {
	i, ok := c.byKey[key]
	if !ok {
		return Category{}, ErrNotFound
	}
	return c.categories[i], nil
}

func (c *Catalog) Peptide(slug string) (Peptide, error) {
	p, ok := c.bySlug[slug]
	if !ok {
		return Peptide{}, ErrNotFound
	}
	return p, nil
}

// UnitClassOf resolves a slug for the reconstitution calculator.
func (c *Catalog) UnitClassOf(slug string) (string, calculator.UnitClass, bool) {
	p, ok := c.bySlug[slug]
	if !ok {
		return "", "", false
	}
	return p.Name, p.UnitClass, true
}

func (c *Catalog) Team() []TeamMember {
	return c.team
}

// BlogPosts returns a copy callers may fill with content.
func (c *Catalog) BlogPosts() []BlogPost {
	return append([]BlogPost(nil), c.blog...)
}

func (c *Catalog) BlogPost(slug string) (BlogPost, error) {
	i, ok := c.blogBySlug[slug]
	if !ok {
		return BlogPost{}, ErrNotFound
	}
	return c.blog[i], nil
}

type Stat struct {
	Total       int    `json:"total"`
	Description string `json:"description"`
}

type Statistics struct {
	Peptides         Stat   `json:"peptides"`
	Citations        Stat   `json:"citations"`
	Tools            Stat   `json:"tools"`
	MedicalOversight Stat   `json:"medical_oversight"`
	ResearchStudies  Stat   `json:"research_studies"`
	Categories       Stat   `json:"categories"`
	FDAApproved      Stat   `json:"fda_approved"`
	LastUpdated      string `json:"last_updated"`
}

const (
	clinicalTrials         = 15
	safetyStudies          = 12
	publicationStudies     = 25
	drugInteractionStudies = 8
	professionalTools      = 7
	medicalAdvisors        = 1
)

// Naive UTC timestamp with microseconds.
const lastUpdatedLayout = "2006-01-02T15:04:05.000000"

// Statistics counts peptide listings per category, so a peptide listed
// twice counts twice.
func (c *Catalog) Statistics(now time.Time) Statistics {
	var peptides, citations, fda int
	for _, cat := range c.categories {
		peptides += len(cat.Peptides)
		for _, p := range cat.Peptides {
			citations += len(p.Citations)
			if p.FDAApproved {
				fda++
			}
		}
	}
	studies := clinicalTrials + safetyStudies + publicationStudies + drugInteractionStudies
	return Statistics{
		Peptides:         Stat{peptides, "Comprehensive peptide profiles with mechanisms, structures, safety notes, and references"},
		Citations:        Stat{citations, "Curated peer-reviewed studies and clinical data"},
		Tools:            Stat{professionalTools, "GLP-1 dosage, reconstitution, BMI and metabolic, interaction checks, and more"},
		MedicalOversight: Stat{medicalAdvisors, "Board-certified physician guidance for scientific accuracy"},
		ResearchStudies:  Stat{studies, "Clinical trials, safety studies, and research publications"},
		Categories:       Stat{len(c.categories), "Specialized peptide categories"},
		FDAApproved:      Stat{fda, "FDA-approved peptide therapeutics"},
		LastUpdated:      now.UTC().Format(lastUpdatedLayout),
	}
}

