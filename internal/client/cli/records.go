package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/mindshift/internal/client/models"
	"github.com/dmitrijs2005/mindshift/internal/client/services"
)

const (
	goalUsage    = "goal add <target days> <title> | goal checkin <id> | goal rm <id> | goal ls"
	journalUsage = "journal add <mood 1-5> <text> | journal rm <id> | journal ls"
)

func (a *App) Goal(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage(goalUsage)
	}
	switch args[0] {
	case "add":
		if len(args) < 3 {
			return usage(goalUsage)
		}
		target, err := strconv.Atoi(args[1])
		if err != nil {
			return usage(goalUsage)
		}
		g, err := a.account.AddGoal(ctx, strings.Join(args[2:], " "), "", target)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Added goal", g.ID)
	case "checkin":
		if len(args) != 2 {
			return usage(goalUsage)
		}
		g, err := a.account.CheckInGoal(ctx, a.resolveGoal(args[1]))
		if errors.Is(err, services.ErrAlreadyCheckedIn) {
			fmt.Fprintln(a.out, "Already checked in today")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s: streak %d (best %d)\n", g.Title, g.Streak, g.BestStreak)
		if g.Completed {
			fmt.Fprintln(a.out, "Goal completed!")
		}
	case "rm":
		if len(args) != 2 {
			return usage(goalUsage)
		}
		return a.account.DeleteGoal(ctx, a.resolveGoal(args[1]))
	case "ls":
		goals := a.sortedGoals()
		if len(goals) == 0 {
			fmt.Fprintln(a.out, "No goals")
		}
		for _, g := range goals {
			done := ""
			if g.Completed {
				done = " done"
			}
			fmt.Fprintf(a.out, "%s  %-24s streak %d/%d best %d%s\n",
				shortID(g.ID), g.Title, g.Streak, g.TargetDays, g.BestStreak, done)
		}
	default:
		return usage(goalUsage)
	}
	return nil
}

func (a *App) Journal(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage(journalUsage)
	}
	switch args[0] {
	case "add":
		if len(args) < 3 {
			return usage(journalUsage)
		}
		mood, err := strconv.Atoi(args[1])
		if err != nil {
			return usage(journalUsage)
		}
		var tags []string
		var words []string
		for _, w := range args[2:] {
			if strings.HasPrefix(w, "#") && len(w) > 1 {
				tags = append(tags, w[1:])
				continue
			}
			words = append(words, w)
		}
		j, err := a.account.AddJournalEntry(ctx, strings.Join(words, " "), mood, tags)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Added entry", j.ID)
	case "rm":
		if len(args) != 2 {
			return usage(journalUsage)
		}
		return a.account.DeleteJournalEntry(ctx, a.resolveJournal(args[1]))
	case "ls":
		entries := a.sortedJournal()
		if len(entries) == 0 {
			fmt.Fprintln(a.out, "No journal entries")
		}
		for _, j := range entries {
			tags := ""
			if len(j.Tags) > 0 {
				tags = " #" + strings.Join(j.Tags, " #")
			}
			fmt.Fprintf(a.out, "%s  %s  mood %d  %s%s\n",
				shortID(j.ID), j.CreatedAt.Local().Format(time.DateOnly), j.Mood, j.Body, tags)
		}
	default:
		return usage(journalUsage)
	}
	return nil
}

func (a *App) sortedGoals() []models.Goal {
	goals := make([]models.Goal, 0)
	for _, g := range a.store.Get().Goals {
		goals = append(goals, g)
	}
	slices.SortFunc(goals, func(x, y models.Goal) int {
		if c := x.CreatedAt.Compare(y.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(x.ID, y.ID)
	})
	return goals
}

func (a *App) sortedJournal() []models.JournalEntry {
	entries := make([]models.JournalEntry, 0)
	for _, j := range a.store.Get().Journal {
		entries = append(entries, j)
	}
	slices.SortFunc(entries, func(x, y models.JournalEntry) int {
		if c := y.CreatedAt.Compare(x.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(x.ID, y.ID)
	})
	return entries
}

// resolveGoal expands a unique id prefix as printed by "goal ls".
func (a *App) resolveGoal(ref string) string {
	var ids []string
	for id := range a.store.Get().Goals {
		ids = append(ids, id)
	}
	return resolveID(ids, ref)
}

func (a *App) resolveJournal(ref string) string {
	var ids []string
	for id := range a.store.Get().Journal {
		ids = append(ids, id)
	}
	return resolveID(ids, ref)
}

func resolveID(ids []string, ref string) string {
	match := ""
	for _, id := range ids {
		if id == ref {
			return id
		}
		if strings.HasPrefix(id, ref) {
			if match != "" {
				return ref
			}
			match = id
		}
	}
	if match == "" {
		return ref
	}
	return match
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
