package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/service"
	"github.com/phrazzld/campus-api/internal/service/vocab"
	"github.com/phrazzld/campus-api/internal/store"
	"golang.org/x/term"
)

// passwordReader prompts for a secret.
type passwordReader func(prompt string) (string, error)

// terminalPassword reads without echo when stdin is a terminal and falls back
// to a plain line otherwise, so the command can be scripted.
func terminalPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// createAdmin creates an admin account for email, or promotes the existing
// account and resets its password.
func createAdmin(ctx context.Context, users service.UserService, email string, read passwordReader, out io.Writer) error {
	password, err := read("Password: ")
	if err != nil {
		return err
	}
	confirm, err := read("Confirm password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}

	user, created, err := users.CreateAdmin(ctx, email, password)
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	if created {
		fmt.Fprintf(out, "Created admin %s (%s)\n", user.Email, user.ID)
	} else {
		fmt.Fprintf(out, "Promoted %s (%s) to admin\n", user.Email, user.ID)
	}
	return nil
}

// lessonOwners resolves the owner of a vocabulary lesson.
type lessonOwners interface {
	GetLesson(ctx context.Context, id uuid.UUID) (*store.LessonSummary, error)
}

// importWords loads a word list file into a lesson on behalf of its owner.
func importWords(
	ctx context.Context,
	lessons lessonOwners,
	words vocab.Service,
	path, lesson string,
	out io.Writer,
) error {
	lessonID, err := uuid.Parse(lesson)
	if err != nil {
		return fmt.Errorf("invalid lesson id %q: %w", lesson, err)
	}
	summary, err := lessons.GetLesson(ctx, lessonID)
	if err != nil {
		return fmt.Errorf("failed to load lesson: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open word list: %w", err)
	}
	defer func() { _ = f.Close() }()

	result, err := words.ImportWords(ctx, summary.UserID, lessonID, filepath.Base(path), f)
	if err != nil {
		return fmt.Errorf("failed to import words: %w", err)
	}
	fmt.Fprintf(out, "Imported %d words into %q (%d skipped)\n", result.Imported, summary.Title, result.Skipped)
	return nil
}
