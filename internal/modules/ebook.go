package modules

import (
	"context"
	"fmt"

	"github.com/starford/inksync/internal/archive"
	"github.com/starford/inksync/internal/classify"
	"github.com/starford/inksync/internal/models"
	"github.com/starford/inksync/internal/render"
)

// ebookProcessor syncs reading highlights and in-page annotations from an
// e-book container into one highlight document per book.
type ebookProcessor struct{}

func (ebookProcessor) Format() classify.Format { return classify.Ebook }

func (ebookProcessor) Process(ctx context.Context, env *Env, ar archive.Reader, sum string) Result {
	var res Result
	cfg := env.Cfg.Ebook
	names := ar.List()

	beanEntry := archive.FindBySuffix(names, classify.SuffixBookBean)
	if beanEntry == "" {
		return failed(fmt.Errorf("ebook: %s: no book metadata entry", ar.Name()))
	}
	var bean BookBean
	if err := ar.ExtractJSON(beanEntry, &bean); err != nil {
		return failed(fmt.Errorf("ebook: %w", err))
	}
	if bean.NoteID == "" {
		return failed(fmt.Errorf("ebook: %s: metadata carries no noteId", ar.Name()))
	}

	slug := Slugify(bean.BookName)
	unlock := env.LockNote(bean.NoteID)
	defer unlock()

	notePath := cfg.DocPath(slug)

	rec, err := resolveTarget(env, &res, bean.NoteID, ar.Name(), slug, notePath)
	if err != nil {
		res.Errors = append(res.Errors, err)
		return res
	}
	if unchanged(rec, sum, notePath) {
		res.Success, res.Skipped = true, true
		return res
	}

	var highlights []Highlight
	if entry := archive.FindBySuffix(names, classify.SuffixReadNoteBean); entry != "" {
		var notes []ReadNote
		if err := ar.ExtractJSON(entry, &notes); err != nil {
			res.warnf("read notes: %v", err)
		} else {
			for _, n := range notes {
				highlights = append(highlights, Highlight{Text: n.Content, Note: n.Summary})
			}
		}
	}
	if entry := archive.FindBySuffix(names, classify.SuffixTextAnnotation); entry != "" {
		var annotations []PageTextAnnotation
		if err := ar.ExtractJSON(entry, &annotations); err != nil {
			res.warnf("annotations: %v", err)
		} else {
			for _, a := range annotations {
				highlights = append(highlights, Highlight{Text: a.Text, Note: a.Note})
			}
		}
	}

	created := msTime(bean.CreateTime)
	modified := msTime(bean.ModifyTime)

	vars := map[string]any{
		"NoteID":     bean.NoteID,
		"Title":      bean.BookName,
		"Author":     bean.Author,
		"Created":    created.Format(timeLayout),
		"Modified":   modified.Format(timeLayout),
		"DateTag":    created.Format(dateLayout),
		"Highlights": highlights,
	}
	fresh, err := env.Renderer.Render(render.Ebook, vars)
	if err != nil {
		res.Errors = append(res.Errors, err)
		return res
	}
	if err := writeDoc(env, &res, notePath, fresh, cfg.AttachPrefix()); err != nil {
		res.Errors = append(res.Errors, err)
		return res
	}

	if err := env.Store.Set(&models.NoteRecord{
		NoteID:          bean.NoteID,
		ExternalFileID:  ar.Name(),
		NotePath:        notePath,
		ArchiveChecksum: sum,
		CreationTime:    created,
		LastModified:    modified,
	}); err != nil {
		res.Errors = append(res.Errors, err)
		return res
	}

	env.Linker.Link(notePath, created)

	res.Success = true
	return res
}
