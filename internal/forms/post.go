package forms

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"yatube/internal/models"
	"yatube/internal/utils"
)

// GroupLookup resolves the group choice of a post form.
type GroupLookup interface {
	GetGroup(ctx context.Context, id int64) (*models.Group, error)
}

// ImageStore persists uploaded images and returns their reference.
type ImageStore interface {
	Save(name string, r io.Reader) (string, error)
}

// PostForm creates a post or edits an existing one.
type PostForm struct {
	Text       string
	Group      string // raw group id, "" for none
	Image      *Upload
	ClearImage bool
	Errors     FieldErrors

	oversized bool

	instance *models.Post
	groups   GroupLookup
	images   ImageStore
}

var _ Form[*models.Post] = (*PostForm)(nil)

// NewPostForm returns an unbound form. With a non-nil instance the form
// edits that post and starts out with its values.
func NewPostForm(groups GroupLookup, images ImageStore, instance *models.Post) *PostForm {
	f := &PostForm{
		Errors:   FieldErrors{},
		instance: instance,
		groups:   groups,
		images:   images,
	}
	if instance != nil {
		f.Text = instance.Text
		if instance.GroupID != nil {
			f.Group = strconv.FormatInt(*instance.GroupID, 10)
		}
	}
	return f
}

// Bind reads the submitted fields and the optional image from r.
func (f *PostForm) Bind(r *http.Request) error {
	r.Body = http.MaxBytesReader(nil, r.Body, MaxUploadSize+1<<20)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || errors.Is(err, multipart.ErrMessageTooLarge) {
			// The rest of the body is lost, so only the size error is reported.
			f.oversized = true
			return nil
		}
		return err
	}

	f.Text = r.PostFormValue("text")
	f.Group = r.PostFormValue("group")
	f.ClearImage = r.PostFormValue("image-clear") != ""

	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil
		}
		return err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadSize+1))
	if err != nil {
		return err
	}
	f.Image = &Upload{Filename: header.Filename, Data: data}
	return nil
}

// IsEdit reports whether the form edits an existing post.
func (f *PostForm) IsEdit() bool {
	return f.instance != nil
}

// CurrentImage is the stored image of the edited post.
func (f *PostForm) CurrentImage() string {
	if f.instance == nil {
		return ""
	}
	return f.instance.Image
}

// Selected reports whether groupID is the form's current choice.
func (f *PostForm) Selected(groupID int64) bool {
	return f.Group == strconv.FormatInt(groupID, 10)
}

// Validate returns the new or updated post. The author of a new post is left
// for the caller to set. The image is only stored once every field is valid.
func (f *PostForm) Validate(ctx context.Context) (*models.Post, error) {
	f.Errors = FieldErrors{}

	text := strings.TrimSpace(f.Text)
	if text == "" {
		f.Errors.Add("text", msgRequired)
	}

	groupID, err := f.cleanGroup(ctx)
	if err != nil {
		return nil, err
	}

	if f.oversized {
		f.Errors.Add("image", msgTooLarge)
	}
	if f.Image != nil {
		if f.ClearImage {
			f.Errors.Add("image", "Please either submit a file or check the clear checkbox, not both.")
		} else if msg := validateImage(f.Image); msg != "" {
			f.Errors.Add("image", msg)
		}
	}

	if err := f.Errors.err(); err != nil {
		return nil, err
	}

	post := &models.Post{}
	if f.instance != nil {
		edited := *f.instance
		post = &edited
	}
	post.Text = text
	post.GroupID = groupID

	switch {
	case f.Image != nil:
		ref, err := f.images.Save(f.Image.Filename, bytes.NewReader(f.Image.Data))
		if err != nil {
			return nil, err
		}
		post.Image = ref
	case f.ClearImage:
		post.Image = ""
	}
	return post, nil
}

func (f *PostForm) cleanGroup(ctx context.Context) (*int64, error) {
	raw := strings.TrimSpace(f.Group)
	if raw == "" {
		return nil, nil
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		f.Errors.Add("group", msgInvalidChoice)
		return nil, nil
	}

	group, err := f.groups.GetGroup(ctx, id)
	if err != nil {
		if utils.IsNotFound(err) {
			f.Errors.Add("group", msgInvalidChoice)
			return nil, nil
		}
		return nil, err
	}
	return &group.ID, nil
}
