package contracts

import "github.com/codecoevoer/coevoer/history/models"

type IHistoryStore interface {
	Save(entry *models.Entry) error
	List() ([]models.Entry, error)
	Get(id string) (*models.Entry, error)
	Clear() (int, error)
	Stats() (models.Stats, error)
	Prune(options models.PruneOptions) (int, error)
}
