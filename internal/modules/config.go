package modules

import (
	"path"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ModuleConfig is the per-module output surface supplied by the host
// configuration.
type ModuleConfig struct {
	// Folder is the vault-relative output folder for this module's documents.
	Folder string `yaml:"folder"`
	// AttachmentsFolder is relative to Folder; extracted images land there.
	AttachmentsFolder string `yaml:"attachments_folder"`
	// Template optionally points at a user template file overriding the default.
	Template string `yaml:"template"`
	// IndexTemplate overrides the per-note index document template
	// (handwritten module only).
	IndexTemplate string `yaml:"index_template"`
	// ExtractImages toggles writing image attachments.
	ExtractImages bool `yaml:"extract_images"`
	// WriteIndex toggles the per-note index document (handwritten module).
	WriteIndex bool `yaml:"write_index"`
	// QuickMerge toggles the in-place line-rewrite merge (memo module).
	QuickMerge bool `yaml:"quick_merge"`
}

// Validate validates the module configuration.
func (c *ModuleConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Folder, validation.Required),
		validation.Field(&c.AttachmentsFolder, validation.Required),
	)
}

// AttachPrefix returns the attachments folder prefix as it appears inside
// document embeds (relative to the module folder).
func (c *ModuleConfig) AttachPrefix() string {
	return c.AttachmentsFolder + "/"
}

// DocPath returns the vault-relative path of a document named base (without
// extension) inside the module folder.
func (c *ModuleConfig) DocPath(base string) string {
	return path.Join(c.Folder, base+".md")
}

// Config groups the per-module surfaces plus engine-wide knobs.
type Config struct {
	// Workers bounds how many notes sync concurrently.
	Workers     int          `yaml:"workers"`
	Handwritten ModuleConfig `yaml:"handwritten"`
	Ebook       ModuleConfig `yaml:"ebook"`
	Memo        ModuleConfig `yaml:"memo"`
	Journal     ModuleConfig `yaml:"journal"`
}

// Validate validates the sync configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Workers, validation.Required, validation.Min(1), validation.Max(64)),
	); err != nil {
		return err
	}
	for _, mc := range []*ModuleConfig{&c.Handwritten, &c.Ebook, &c.Memo, &c.Journal} {
		if err := mc.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// NewDefaultConfig returns the sync configuration used when the host
// supplies nothing.
func NewDefaultConfig() Config {
	return Config{
		Workers: 4,
		Handwritten: ModuleConfig{
			Folder:            "Notes",
			AttachmentsFolder: "attachments",
			ExtractImages:     true,
			WriteIndex:        true,
		},
		Ebook: ModuleConfig{
			Folder:            "Books",
			AttachmentsFolder: "attachments",
			ExtractImages:     true,
		},
		Memo: ModuleConfig{
			Folder:            "Memos",
			AttachmentsFolder: "attachments",
			ExtractImages:     true,
			QuickMerge:        true,
		},
		Journal: ModuleConfig{
			Folder:            "Journal",
			AttachmentsFolder: "attachments",
			ExtractImages:     true,
		},
	}
}
