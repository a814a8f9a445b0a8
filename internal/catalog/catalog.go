// Package catalog holds the static list of courses offered for sale and
// merges catalog entries with their ledger records.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/davidahmann/courseledger/internal/crypto"
	"github.com/davidahmann/courseledger/internal/ledger"
	"github.com/davidahmann/courseledger/pkg/types"
)

type file struct {
	Courses []types.CourseDescriptor `yaml:"courses"`
}

// Catalog is an ordered, read-only set of course descriptors.
type Catalog struct {
	courses []types.CourseDescriptor
	byID    map[string]int
}

// Load reads a YAML catalog from path.
func Load(path string) (*Catalog, error) {
	// #nosec G304 -- path comes from operator configuration.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return New(f.Courses)
}

// New validates courses and builds a catalog preserving their order. Text
// fields are NFC-normalised; ids are kept byte-for-byte because they feed
// the order identifier. Every problem is reported, not just the first.
func New(courses []types.CourseDescriptor) (*Catalog, error) {
	if len(courses) == 0 {
		return nil, ErrEmptyCatalog
	}
	c := &Catalog{
		courses: make([]types.CourseDescriptor, 0, len(courses)),
		byID:    make(map[string]int, len(courses)),
	}
	var result *multierror.Error
	for i, course := range courses {
		if err := validate(course); err != nil {
			result = multierror.Append(result, fmt.Errorf("course %d: %w", i, err))
			continue
		}
		if _, dup := c.byID[course.ID]; dup {
			result = multierror.Append(result, fmt.Errorf("course %d: %w: %q", i, ErrDuplicateCourseID, course.ID))
			continue
		}
		c.byID[course.ID] = len(c.courses)
		c.courses = append(c.courses, normalizeText(course))
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return c, nil
}

func validate(course types.CourseDescriptor) error {
	if _, err := crypto.CourseIDBytes(course.ID); err != nil {
		return err
	}
	// Zero padding would make "a" and "a\x00" collide on the ledger.
	if strings.ContainsRune(course.ID, 0) {
		return fmt.Errorf("%w: %q contains NUL", ErrInvalidCourseID, course.ID)
	}
	if _, err := ledger.ToWei(course.Price); err != nil {
		return fmt.Errorf("%w for %q: %v", ErrInvalidPrice, course.ID, err)
	}
	return nil
}

func normalizeText(course types.CourseDescriptor) types.CourseDescriptor {
	course.Title = norm.NFC.String(course.Title)
	course.Description = norm.NFC.String(course.Description)
	course.Slug = norm.NFC.String(course.Slug)
	course.Type = norm.NFC.String(course.Type)
	if len(course.WSL) > 0 {
		wsl := make([]string, len(course.WSL))
		for i, w := range course.WSL {
			wsl[i] = norm.NFC.String(w)
		}
		course.WSL = wsl
	}
	return course
}

// Courses returns the descriptors in catalog order.
func (c *Catalog) Courses() []types.CourseDescriptor {
	out := make([]types.CourseDescriptor, len(c.courses))
	copy(out, c.courses)
	return out
}

func (c *Catalog) Lookup(id string) (types.CourseDescriptor, bool) {
	i, ok := c.byID[id]
	if !ok {
		return types.CourseDescriptor{}, false
	}
	return c.courses[i], true
}

func (c *Catalog) Len() int { return len(c.courses) }
