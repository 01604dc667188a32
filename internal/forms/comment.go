package forms

import (
	"context"
	"net/http"
	"strings"

	"yatube/internal/models"
)

// CommentForm has a single required text field. Author and post are bound
// by the caller.
type CommentForm struct {
	Text   string
	Errors FieldErrors
}

var _ Form[*models.Comment] = (*CommentForm)(nil)

func NewCommentForm() *CommentForm {
	return &CommentForm{Errors: FieldErrors{}}
}

func (f *CommentForm) Bind(r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return err
	}
	f.Text = r.PostFormValue("text")
	return nil
}

func (f *CommentForm) Validate(ctx context.Context) (*models.Comment, error) {
	f.Errors = FieldErrors{}

	text := strings.TrimSpace(f.Text)
	if text == "" {
		f.Errors.Add("text", msgRequired)
		return nil, f.Errors
	}
	return &models.Comment{Text: text}, nil
}
