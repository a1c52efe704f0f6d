package api

import (
	"github.com/olamda/curator/app/database"
	"github.com/olamda/curator/app/tasks"
)

type Handler struct {
	itemRepo  database.ItemRepository
	scheduler tasks.TaskSchedulerInterface
	version   string
}
