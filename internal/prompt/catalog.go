package prompt

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultVersion is the catalog entry used when the requested id is unknown.
const DefaultVersion = "v1-concise"

const templateV1 = `You are an empathetic mental health companion.
Given the user's daily journal entry (mixed emotions welcome):
1) emotion: name the dominant emotion using exactly one of: anxiety, sadness, joy, anger, loneliness, fear, stress, neutrality.
2) reflection: in 2-3 sentences, validate their feelings and acknowledge both positives and struggles.
3) advice: one realistic, compassionate suggestion for tomorrow (no diagnosis).
4) follow_up: one gentle question they could sit with, or an empty string.
5) crisis: true only if the entry suggests risk of self-harm, otherwise false.
Tone: warm, human, non-clinical, non-judgmental.
Return strict JSON with keys: emotion, reflection, advice, follow_up, crisis.`

const templateV2 = `You are a supportive, therapist-style companion.
For the user's mixed-emotion daily journal entry:
1) emotion: one of: anxiety, sadness, joy, anger, loneliness, fear, stress, neutrality.
2) reflection: 2-3 sentences naming a helpful pattern or theme, echoing 1-2 exact phrases from the entry.
3) advice: one small, practical next step for tomorrow, aligned to their context.
4) follow_up: one short question, or an empty string.
5) crisis: true only on signs of self-harm risk, otherwise false.
No diagnosis. Return strict JSON with keys: emotion, reflection, advice, follow_up, crisis.`

const templateV3 = `You are a compassionate, motivational counselor.
For the user's daily journal entry:
1) emotion: one of: anxiety, sadness, joy, anger, loneliness, fear, stress, neutrality.
2) reflection: 2-3 sentences highlighting resilience and agency; gently reframe any harsh self-talk.
3) advice: one micro-action (under 10 minutes) for tomorrow to build momentum.
4) follow_up: one short question, or an empty string.
5) crisis: true only on signs of self-harm risk, otherwise false.
Avoid clinical terms. Return strict JSON with keys: emotion, reflection, advice, follow_up, crisis.`

var builtins = map[string]string{
	"v1-concise":    templateV1,
	"v2-pattern":    templateV2,
	"v3-resilience": templateV3,
}

// Catalog maps prompt-version ids to template bodies. Built-in versions are
// append-only: an overlay file may add new ids but can never remove or
// replace a built-in, so ids recorded in the run log stay resolvable.
type Catalog struct {
	templates map[string]string
}

func NewCatalog() *Catalog {
	c := &Catalog{templates: make(map[string]string, len(builtins))}
	for id, body := range builtins {
		c.templates[id] = body
	}
	return c
}

type overlayFile struct {
	Versions map[string]string `yaml:"versions"`
}

// LoadOverlay merges extra versions from a YAML file. A missing file is not
// an error. Ids colliding with existing versions are rejected.
func (c *Catalog) LoadOverlay(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read catalog overlay %q: %w", path, err)
	}

	var overlay overlayFile
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parse catalog overlay %q: %w", path, err)
	}

	for id, body := range overlay.Versions {
		id = strings.TrimSpace(id)
		body = strings.TrimSpace(body)
		if id == "" || body == "" {
			continue
		}
		if _, exists := c.templates[id]; exists {
			return fmt.Errorf("catalog overlay %q: version %q already exists and cannot be overwritten", path, id)
		}
		c.templates[id] = body
	}
	return nil
}

// Lookup resolves a version id to its template body. Unknown ids fall back
// to the default version; the resolved id is returned so the run log records
// what was actually used.
func (c *Catalog) Lookup(id string) (resolved, body string) {
	if tmpl, ok := c.templates[id]; ok {
		return id, tmpl
	}
	return DefaultVersion, c.templates[DefaultVersion]
}

// Versions lists all known version ids, sorted.
func (c *Catalog) Versions() []string {
	ids := make([]string, 0, len(c.templates))
	for id := range c.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
