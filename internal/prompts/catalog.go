// Package prompts holds the template catalog and the text helpers used to
// turn template inputs into a prompt and a completion into a title.
package prompts

import (
	"regexp"
	"sort"

	"copyforge/internal/models"
)

// CustomTemplateID is recorded as the template of free-form prompts
const CustomTemplateID = "custom"

var placeholderRegex = regexp.MustCompile(`\{([A-Za-z][A-Za-z0-9_]*)\}`)

// Template is one catalog entry
type Template struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	ContentType  models.ContentType `json:"contentType"`
	Body         string             `json:"-"`
	Placeholders []string           `json:"placeholders"`
}

// Catalog is a read-only set of templates keyed by ID
type Catalog struct {
	templates map[string]Template
	order     []string
}

// NewCatalog builds a catalog, computing each template's placeholders
func NewCatalog(templates ...Template) *Catalog {
	c := &Catalog{templates: make(map[string]Template, len(templates))}
	for _, t := range templates {
		t.Placeholders = Placeholders(t.Body)
		if _, exists := c.templates[t.ID]; !exists {
			c.order = append(c.order, t.ID)
		}
		c.templates[t.ID] = t
	}
	return c
}

// DefaultCatalog returns the built-in templates
func DefaultCatalog() *Catalog {
	return NewCatalog(defaultTemplates...)
}

// Get returns the template with id
func (c *Catalog) Get(id string) (Template, bool) {
	t, ok := c.templates[id]
	return t, ok
}

// List returns all templates in registration order
func (c *Catalog) List() []Template {
	out := make([]Template, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.templates[id])
	}
	return out
}

// Placeholders returns the distinct {name} placeholders in body, sorted
func Placeholders(body string) []string {
	seen := make(map[string]bool)
	names := []string{}
	for _, m := range placeholderRegex.FindAllStringSubmatch(body, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	sort.Strings(names)
	return names
}

var defaultTemplates = []Template{
	{
		ID:          "blog-post",
		Name:        "Blog post",
		Description: "A structured long-form article on a topic",
		ContentType: models.ContentTypeBlog,
		Body: "Write a blog post titled around the topic \"{topic}\" for {audience}. " +
			"Use a {tone} tone. Start with a single markdown heading containing the title, " +
			"then an introduction, three to five sections with subheadings, and a short conclusion.",
	},
	{
		ID:          "how-to-guide",
		Name:        "How-to guide",
		Description: "Step-by-step instructions",
		ContentType: models.ContentTypeBlog,
		Body: "Write a step-by-step guide explaining how to {task}. The reader's experience level is {level}. " +
			"Start with a markdown heading, list prerequisites, then numbered steps with brief explanations.",
	},
	{
		ID:          "product-description",
		Name:        "Product description",
		Description: "Persuasive copy for a product page",
		ContentType: models.ContentTypeMarketing,
		Body: "Write a product description for {product}. Key features: {features}. Target customer: {audience}. " +
			"Start with a short headline on its own line, followed by two persuasive paragraphs and a call to action.",
	},
	{
		ID:          "email-campaign",
		Name:        "Email campaign",
		Description: "A marketing email with subject line",
		ContentType: models.ContentTypeMarketing,
		Body: "Write a marketing email announcing {offer} from {brand}. " +
			"The first line must be the subject line. Keep the body under 200 words and end with a clear call to action.",
	},
	{
		ID:          "social-post",
		Name:        "Social media post",
		Description: "A short post for a social network",
		ContentType: models.ContentTypeSocialMedia,
		Body: "Write a {platform} post about {topic}. Keep it concise and engaging, " +
			"open with a hook on the first line, and add up to three relevant hashtags at the end.",
	},
	{
		ID:          "thread",
		Name:        "Thread",
		Description: "A numbered multi-post thread",
		ContentType: models.ContentTypeSocialMedia,
		Body: "Write a thread of five short numbered posts explaining {topic} to {audience}. " +
			"The first line is a hook that works as a title.",
	},
}
