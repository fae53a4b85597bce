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

// memoProcessor syncs short memos. Because a memo document's shape is
// simple and stable, an existing document is updated in place by
// rewriting only the modified-timestamp line and the embedded image line;
// every other line stays byte-identical.
type memoProcessor struct{}

func (memoProcessor) Format() classify.Format { return classify.Memo }

func (memoProcessor) Process(ctx context.Context, env *Env, ar archive.Reader, sum string) Result {
	var res Result
	cfg := env.Cfg.Memo
	names := ar.List()

	headerEntry := archive.FindBySuffix(names, classify.SuffixHeaderInfo)
	if headerEntry == "" {
		return failed(fmt.Errorf("memo: %s: no header entry", ar.Name()))
	}
	var header HeaderInfo
	if err := ar.ExtractJSON(headerEntry, &header); err != nil {
		return failed(fmt.Errorf("memo: %w", err))
	}
	if header.NoteID == "" {
		return failed(fmt.Errorf("memo: %s: header carries no noteId", ar.Name()))
	}

	beanEntry := archive.FindBySuffix(names, classify.SuffixNotesBean)
	if beanEntry == "" {
		return failed(fmt.Errorf("memo: %s: no memo body entry", ar.Name()))
	}
	var bean MemoBean
	if err := ar.ExtractJSON(beanEntry, &bean); err != nil {
		return failed(fmt.Errorf("memo: %w", err))
	}

	slug := Slugify(header.Title)
	unlock := env.LockNote(header.NoteID)
	defer unlock()

	notePath := cfg.DocPath(slug)

	rec, err := resolveTarget(env, &res, header.NoteID, ar.Name(), slug, notePath)
	if err != nil {
		res.Errors = append(res.Errors, err)
		return res
	}
	if unchanged(rec, sum, notePath) {
		res.Success, res.Skipped = true, true
		return res
	}

	created := msTime(header.CreateTime)
	modified := msTime(header.ModifyTime)
	ts := header.ModifyTime / 1000

	imageRel := ""
	var pages []models.PageRef
	if cfg.ExtractImages && bean.ImageName != "" && ar.Has(bean.ImageName) {
		data, err := ar.Extract(bean.ImageName)
		if err != nil {
			res.warnf("memo image: %v", err)
		} else {
			ext := strings.TrimPrefix(path.Ext(bean.ImageName), ".")
			if ext == "" {
				ext = "png"
			}
			imageRel = fmt.Sprintf("%s/%s-image-%d.%s", cfg.AttachmentsFolder, slug, ts, ext)
			if err := env.Docs.Write(path.Join(cfg.Folder, imageRel), data); err != nil {
				res.warnf("memo image: %v", err)
				imageRel = ""
			} else {
				pages = append(pages, models.PageRef{Page: 1, Image: imageRel})
			}
		}
	}

	var items []TodoItem
	if entry := archive.FindBySuffix(names, classify.SuffixNoteList); entry != "" {
		var list []NoteListItem
		if err := ar.ExtractJSON(entry, &list); err != nil {
			res.warnf("note list: %v", err)
		} else {
			for _, item := range list {
				items = append(items, TodoItem{Content: item.Content, Done: item.Done})
			}
		}
	}

	if cfg.QuickMerge && env.Docs.Exists(notePath) {
		if err := quickRewrite(env, &res, notePath, modified.Format(timeLayout), imageRel); err != nil {
			res.Errors = append(res.Errors, err)
			return res
		}
	} else {
		vars := map[string]any{
			"NoteID":   header.NoteID,
			"Title":    header.Title,
			"Created":  created.Format(timeLayout),
			"Modified": modified.Format(timeLayout),
			"DateTag":  created.Format(dateLayout),
			"Content":  bean.Content,
			"Image":    imageRel,
			"Items":    items,
		}
		fresh, err := env.Renderer.Render(render.Memo, vars)
		if err != nil {
			res.Errors = append(res.Errors, err)
			return res
		}
		if err := writeDoc(env, &res, notePath, fresh, cfg.AttachPrefix()); err != nil {
			res.Errors = append(res.Errors, err)
			return res
		}
	}

	if err := env.Store.Set(&models.NoteRecord{
		NoteID:          header.NoteID,
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

// quickRewrite is the memo module's in-place merge: only the modified
// line in the header and the embedded image line change; all other lines
// are left byte-identical.
func quickRewrite(env *Env, res *Result, notePath, modified, imageRel string) error {
	data, err := env.Docs.Read(notePath)
	if err != nil {
		return fmt.Errorf("read %s: %w", notePath, err)
	}

	attachPrefix := env.Cfg.Memo.AttachPrefix()
	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "modified: ") {
			lines[i] = "modified: " + modified
			continue
		}
		if imageRel == "" {
			continue
		}
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, "![[") && strings.Contains(t, attachPrefix) &&
			strings.Contains(t, "-image-") {
			lines[i] = "![[" + imageRel + "]]"
		}
	}

	if err := env.Docs.Write(notePath, []byte(strings.Join(lines, "\n"))); err != nil {
		return fmt.Errorf("write %s: %w", notePath, err)
	}
	res.CreatedPaths = append(res.CreatedPaths, notePath)
	return nil
}
