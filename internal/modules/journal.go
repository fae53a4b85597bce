package modules

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/starford/inksync/internal/archive"
	"github.com/starford/inksync/internal/classify"
	"github.com/starford/inksync/internal/models"
	"github.com/starford/inksync/internal/render"
)

// journalProcessor syncs daily-journal notes into date-indexed documents.
// The date comes from the archive's own file name and takes precedence
// over any embedded metadata timestamp.
type journalProcessor struct{}

func (journalProcessor) Format() classify.Format { return classify.Journal }

func (journalProcessor) Process(ctx context.Context, env *Env, ar archive.Reader, sum string) Result {
	var res Result
	cfg := env.Cfg.Journal

	year, month, dayOfMonth, ok := classify.JournalDate(ar.Name())
	if !ok {
		return failed(fmt.Errorf("journal: %s: name carries no date", ar.Name()))
	}
	day := time.Date(year, time.Month(month), dayOfMonth, 0, 0, 0, 0, time.UTC)
	dateTag := day.Format(dateLayout)

	var bean NotesBean
	hasBean := ar.Has(classify.EntryNotesBean)
	if hasBean {
		if err := ar.ExtractJSON(classify.EntryNotesBean, &bean); err != nil {
			return failed(fmt.Errorf("journal: %w", err))
		}
	}
	noteID := bean.NoteID
	if noteID == "" {
		noteID = "journal-" + dateTag
	}

	slug := "day-" + dateTag
	unlock := env.LockNote(noteID)
	defer unlock()

	notePath := cfg.DocPath(dateTag)

	rec, err := resolveTarget(env, &res, noteID, ar.Name(), slug, notePath)
	if err != nil {
		res.Errors = append(res.Errors, err)
		return res
	}
	if unchanged(rec, sum, notePath) {
		res.Success, res.Skipped = true, true
		return res
	}

	created := day
	modified := day
	ts := day.Unix()
	if hasBean {
		if bean.CreateTime > 0 {
			created = msTime(bean.CreateTime)
		}
		if bean.ModifyTime > 0 {
			modified = msTime(bean.ModifyTime)
			ts = bean.ModifyTime / 1000
		}
	}

	var texts []string
	if ar.Has(classify.EntryLayoutText) {
		var entries []LayoutTextEntry
		if err := ar.ExtractJSON(classify.EntryLayoutText, &entries); err != nil {
			res.warnf("layout text: %v", err)
		} else {
			for _, e := range entries {
				if strings.TrimSpace(e.Text) != "" {
					texts = append(texts, e.Text)
				}
			}
		}
	}

	var images []string
	var pages []models.PageRef
	if cfg.ExtractImages {
		for n := 1; ar.Has(fmt.Sprintf("%d.png", n)); n++ {
			if ctx.Err() != nil {
				res.Errors = append(res.Errors, ctx.Err())
				return res
			}
			data, err := ar.Extract(fmt.Sprintf("%d.png", n))
			if err != nil {
				res.warnf("page %d image: %v", n, err)
				continue
			}
			imageRel := fmt.Sprintf("%s/%s-page-%d-%d.png", cfg.AttachmentsFolder, slug, n, ts)
			if err := env.Docs.Write(path.Join(cfg.Folder, imageRel), data); err != nil {
				res.warnf("page %d image: %v", n, err)
				continue
			}
			images = append(images, imageRel)
			pages = append(pages, models.PageRef{Page: n, Image: imageRel})
		}
	}

	vars := map[string]any{
		"NoteID":   noteID,
		"Title":    "Journal " + dateTag,
		"DateTag":  dateTag,
		"Created":  created.Format(timeLayout),
		"Modified": modified.Format(timeLayout),
		"Images":   images,
		"Text":     strings.Join(texts, "\n\n"),
	}
	fresh, err := env.Renderer.Render(render.Journal, vars)
	if err != nil {
		res.Errors = append(res.Errors, err)
		return res
	}
	if err := writeDoc(env, &res, notePath, fresh, cfg.AttachPrefix()); err != nil {
		res.Errors = append(res.Errors, err)
		return res
	}

	if err := env.Store.Set(&models.NoteRecord{
		NoteID:          noteID,
		ExternalFileID:  ar.Name(),
		NotePath:        notePath,
		ArchiveChecksum: sum,
		CreationTime:    created,
		LastModified:    modified,
		Pages:           pages,
	}); err != nil {
		res.Errors = append(res.Errors, err)
		return res
	}

	res.Success = true
	return res
}
