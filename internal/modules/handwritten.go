package modules

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/starford/inksync/internal/archive"
	"github.com/starford/inksync/internal/classify"
	"github.com/starford/inksync/internal/models"
	"github.com/starford/inksync/internal/render"
)

// handwrittenProcessor syncs page-based handwritten notes: one document
// per page embedding its extracted page image, plus an index document
// linking the pages.
type handwrittenProcessor struct{}

func (handwrittenProcessor) Format() classify.Format { return classify.Handwritten }

func (handwrittenProcessor) Process(ctx context.Context, env *Env, ar archive.Reader, sum string) Result {
	var res Result
	cfg := env.Cfg.Handwritten

	var bean NotesBean
	if err := ar.ExtractJSON(classify.EntryNotesBean, &bean); err != nil {
		return failed(fmt.Errorf("handwritten: %w", err))
	}
	if bean.NoteID == "" {
		return failed(fmt.Errorf("handwritten: %s: metadata carries no noteId", ar.Name()))
	}
	if bean.PageCount <= 0 {
		return failed(fmt.Errorf("handwritten: %s: page count %d", ar.Name(), bean.PageCount))
	}

	slug := Slugify(bean.NoteName)
	unlock := env.LockNote(bean.NoteID)
	defer unlock()

	notePath := cfg.DocPath(slug)
	if !cfg.WriteIndex {
		notePath = cfg.DocPath(slug + "-page-1")
	}

	rec, err := resolveTarget(env, &res, bean.NoteID, ar.Name(), slug, notePath)
	if err != nil {
		res.Errors = append(res.Errors, err)
		return res
	}
	if unchanged(rec, sum, notePath) {
		res.Success, res.Skipped = true, true
		return res
	}

	textByPage := make(map[int][]string)
	if ar.Has(classify.EntryLayoutText) {
		var entries []LayoutTextEntry
		if err := ar.ExtractJSON(classify.EntryLayoutText, &entries); err != nil {
			res.warnf("layout text: %v", err)
		} else {
			for _, e := range entries {
				if strings.TrimSpace(e.Text) != "" {
					textByPage[e.Page] = append(textByPage[e.Page], e.Text)
				}
			}
		}
	}

	created := msTime(bean.CreateTime)
	modified := msTime(bean.ModifyTime)
	ts := bean.ModifyTime / 1000
	dateTag := created.Format(dateLayout)

	var pages []models.PageRef
	var pageNames []string
	for n := 1; n <= bean.PageCount; n++ {
		if ctx.Err() != nil {
			res.Errors = append(res.Errors, ctx.Err())
			return res
		}

		imageRel := ""
		if cfg.ExtractImages {
			entry := fmt.Sprintf("%d.png", n)
			if ar.Has(entry) {
				data, err := ar.Extract(entry)
				if err != nil {
					res.warnf("page %d image: %v", n, err)
				} else {
					imageRel = fmt.Sprintf("%s/%s-page-%d-%d.png", cfg.AttachmentsFolder, slug, n, ts)
					if err := env.Docs.Write(path.Join(cfg.Folder, imageRel), data); err != nil {
						res.warnf("page %d image: %v", n, err)
						imageRel = ""
					}
				}
			}
		}

		vars := map[string]any{
			"NoteID":     bean.NoteID,
			"Title":      bean.NoteName,
			"Created":    created.Format(timeLayout),
			"Modified":   modified.Format(timeLayout),
			"Page":       n,
			"TotalPages": bean.PageCount,
			"DateTag":    dateTag,
			"Image":      imageRel,
			"Text":       strings.Join(textByPage[n], "\n\n"),
		}
		fresh, err := env.Renderer.Render(render.HandwrittenPage, vars)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("page %d: %w", n, err))
			continue
		}

		pageDoc := cfg.DocPath(fmt.Sprintf("%s-page-%d", slug, n))
		if err := writeDoc(env, &res, pageDoc, fresh, cfg.AttachPrefix()); err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("page %d: %w", n, err))
			continue
		}
		if imageRel != "" {
			pages = append(pages, models.PageRef{Page: n, Image: imageRel})
		}
		pageNames = append(pageNames, strings.TrimSuffix(path.Base(pageDoc), ".md"))
	}

	if cfg.WriteIndex {
		vars := map[string]any{
			"NoteID":     bean.NoteID,
			"Title":      bean.NoteName,
			"Created":    created.Format(timeLayout),
			"Modified":   modified.Format(timeLayout),
			"TotalPages": bean.PageCount,
			"DateTag":    dateTag,
			"Pages":      pageNames,
		}
		fresh, err := env.Renderer.Render(render.HandwrittenIndex, vars)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("index: %w", err))
			return res
		}
		if err := writeDoc(env, &res, notePath, fresh, cfg.AttachPrefix()); err != nil {
			res.Errors = append(res.Errors, err)
			return res
		}
	}

	if err := env.Store.Set(&models.NoteRecord{
		NoteID:          bean.NoteID,
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

	env.Linker.Link(notePath, created)

	res.Success = true
	return res
}
