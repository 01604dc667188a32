package main

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"yatube/internal/forms"
	"yatube/internal/models"

	"github.com/spf13/cobra"
)

var createUserFlags struct {
	username  string
	password  string
	firstName string
	lastName  string
}

var createUserCmd = &cobra.Command{
	Use:   "createuser",
	Short: "Create an account",
	Args:  cobra.NoArgs,
	RunE:  runCreateUser,
}

var createGroupFlags struct {
	title       string
	slug        string
	description string
}

var createGroupCmd = &cobra.Command{
	Use:   "creategroup",
	Short: "Create a group",
	Args:  cobra.NoArgs,
	RunE:  runCreateGroup,
}

func init() {
	f := createUserCmd.Flags()
	f.StringVarP(&createUserFlags.username, "username", "u", "", "username (required)")
	f.StringVarP(&createUserFlags.password, "password", "p", "", "password (required)")
	f.StringVar(&createUserFlags.firstName, "first-name", "", "first name")
	f.StringVar(&createUserFlags.lastName, "last-name", "", "last name")
	_ = createUserCmd.MarkFlagRequired("username")
	_ = createUserCmd.MarkFlagRequired("password")

	g := createGroupCmd.Flags()
	g.StringVarP(&createGroupFlags.title, "title", "t", "", "group title (required)")
	g.StringVarP(&createGroupFlags.slug, "slug", "s", "", "URL slug (required)")
	g.StringVarP(&createGroupFlags.description, "description", "d", "", "group description")
	_ = createGroupCmd.MarkFlagRequired("title")
	_ = createGroupCmd.MarkFlagRequired("slug")

	rootCmd.AddCommand(createUserCmd, createGroupCmd)
}

func runCreateUser(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	db, err := a.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close(context.Background())

	form := forms.NewSignupForm(db)
	form.Username = strings.TrimSpace(createUserFlags.username)
	form.FirstName = createUserFlags.firstName
	form.LastName = createUserFlags.lastName
	form.Password1 = createUserFlags.password
	form.Password2 = createUserFlags.password

	user, err := form.Validate(ctx)
	if err != nil {
		return err
	}
	if err := db.CreateUser(ctx, user); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d)\n", user.Username, user.ID)
	return nil
}

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

func newGroup(title, slug, description string) (*models.Group, error) {
	title, slug = strings.TrimSpace(title), strings.TrimSpace(slug)
	switch {
	case title == "":
		return nil, fmt.Errorf("title is required")
	case utf8.RuneCountInString(title) > 200:
		return nil, fmt.Errorf("title must be at most 200 characters")
	case !slugPattern.MatchString(slug):
		return nil, fmt.Errorf("slug %q may contain only letters, numbers, underscores and hyphens", slug)
	case len(slug) > 100:
		return nil, fmt.Errorf("slug must be at most 100 characters")
	}
	return &models.Group{Title: title, Slug: slug, Description: description}, nil
}

func runCreateGroup(cmd *cobra.Command, args []string) error {
	group, err := newGroup(createGroupFlags.title, createGroupFlags.slug, createGroupFlags.description)
	if err != nil {
		return err
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	db, err := a.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close(context.Background())

	if err := db.CreateGroup(ctx, group); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created group %s (/group/%s/)\n", group.Title, group.Slug)
	return nil
}
