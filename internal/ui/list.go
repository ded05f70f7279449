package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/yubal/internal/models"
)

var _ list.Item = jobItem{}

// jobItem wraps [models.Job] to implement [list.Item].
type jobItem struct {
	job models.Job
}

func (i jobItem) FilterValue() string { return i.job.URL }

func (i jobItem) Title() string {
	if info := i.job.AlbumInfo; info != nil && info.Title != "" {
		if info.Artist != "" {
			return fmt.Sprintf("%s - %s", info.Artist, info.Title)
		}
		return info.Title
	}
	return i.job.URL
}

func (i jobItem) Description() string {
	desc := fmt.Sprintf("%s %3.0f%%", styles.Status(i.job.Status), i.job.Progress)
	if i.job.Message != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.job.Message)
	}
	return desc
}

func jobItems(jobs []models.Job) []list.Item {
	items := make([]list.Item, len(jobs))
	for i := range jobs {
		// newest first
		items[len(jobs)-1-i] = jobItem{job: jobs[i]}
	}
	return items
}
