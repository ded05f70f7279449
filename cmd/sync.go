package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/yubal/internal/models"
	"github.com/desertthunder/yubal/internal/shared"
	"github.com/desertthunder/yubal/internal/ui"
	"github.com/urfave/cli/v3"
)

// Sync queues one job per URL and runs them locally, under the terminal monitor unless --plain is set.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	urls, err := urlArgs(cmd)
	if err != nil {
		return err
	}

	plain := cmd.Bool("plain")
	if !plain {
		// Redirect logs to file to avoid interfering with TUI rendering
		fileLogger, closer, err := shared.NewFileLogger(cmd.String("log-file"))
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		defer closer.Close()
		r.SetLogger(fileLogger)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := models.JobOptions{AudioFormat: cmd.String("audio-format"), MaxItems: cmd.Int("max-items")}
	ids, err := r.queue(urls, opts)
	if err != nil {
		return err
	}

	if plain {
		err = r.watch(ctx)
	} else {
		err = r.monitor(ctx)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := r.executor.Shutdown(shutdownCtx); serr != nil {
		r.logger.Warn("jobs still running at exit", "error", serr)
	}
	if err != nil {
		return err
	}
	return r.syncSummary(ids)
}

// queue creates a job per URL. URLs rejected by a full queue are reported and skipped.
func (r *Runner) queue(urls []string, opts models.JobOptions) ([]string, error) {
	ids := make([]string, 0, len(urls))
	for _, url := range urls {
		job, err := r.jobs.Create(url, opts)
		if err != nil {
			r.logger.Error("failed to queue job", "url", url, "error", err)
			continue
		}
		ids = append(ids, job.ID)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no jobs could be queued", shared.ErrInvalidInput)
	}
	return ids, nil
}

func (r *Runner) monitor(ctx context.Context) error {
	changes, release := r.store.Subscribe()
	defer release()

	model := ui.NewModel(ctx, ui.Opts{Jobs: r.jobs, Changes: changes, ExitWhenIdle: true})
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// watch prints each job's message whenever it changes until every job finishes.
func (r *Runner) watch(ctx context.Context) error {
	changes, release := r.store.Subscribe()
	defer release()

	last := map[string]string{}
	for {
		jobs, _ := r.jobs.List()
		finished := true
		for _, j := range jobs {
			line := fmt.Sprintf("%s %3.0f%% %s", j.Status, j.Progress, j.Message)
			if last[j.ID] != line {
				last[j.ID] = line
				r.writePlain("[%s] %s\n", short(j.ID), line)
			}
			if !j.Status.IsFinished() {
				finished = false
			}
		}
		if finished {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-changes:
		case <-time.After(time.Second):
		}
	}
}

func (r *Runner) syncSummary(ids []string) error {
	r.writePlainHeader("Sync summary")

	failed := 0
	for _, id := range ids {
		job, err := r.jobs.Get(id)
		if err != nil {
			continue
		}
		r.writePlain("%-10s %s\n", job.Status, job.URL)
		if job.Message != "" {
			r.writePlain("           %s\n", job.Message)
		}
		if job.Status != models.StatusCompleted {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d jobs did not complete", shared.ErrPipelineFault, failed, len(ids))
	}
	return nil
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
