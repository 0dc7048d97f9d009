package service

import (
	"fmt"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/shard-legends/hatchery-service/internal/models"
)

// SortKey задает порядок просмотра коллекции
type SortKey string

const (
	SortByName    SortKey = "name"
	SortByRarity  SortKey = "rarity"
	SortByRecency SortKey = "recency"

	// RarityFilterAll отключает фильтр по редкости
	RarityFilterAll = "all"
)

// ViewOptions описывает сортировку и фильтр по редкости
type ViewOptions struct {
	Sort   SortKey
	Rarity string
}

// ParseViewOptions проверяет параметры запроса; пустые значения заменяются значениями по умолчанию
func ParseViewOptions(sortKey, rarity string) (ViewOptions, error) {
	opts := ViewOptions{Sort: SortByRecency, Rarity: RarityFilterAll}

	switch SortKey(sortKey) {
	case "":
	case SortByName, SortByRarity, SortByRecency:
		opts.Sort = SortKey(sortKey)
	default:
		return opts, fmt.Errorf("%w: %q", ErrInvalidSortKey, sortKey)
	}

	if rarity != "" {
		opts.Rarity = rarity
	}

	return opts, nil
}

// BuildCollectionView возвращает отфильтрованную и стабильно отсортированную копию owned.
// Исходный срез не изменяется.
func BuildCollectionView(owned []models.Creature, sortKey SortKey, rarityFilter string) []models.Creature {
	view := make([]models.Creature, 0, len(owned))
	for _, c := range owned {
		if rarityFilter == "" || rarityFilter == RarityFilterAll || string(c.Rarity) == rarityFilter {
			view = append(view, c)
		}
	}

	switch sortKey {
	case SortByName:
		// Collator хранит внутренние буферы, поэтому создается на каждый вызов
		collator := collate.New(language.English)
		sort.SliceStable(view, func(i, j int) bool {
			return collator.CompareString(view[i].Name, view[j].Name) < 0
		})
	case SortByRarity:
		sort.SliceStable(view, func(i, j int) bool {
			return view[i].Rarity.Rank() < view[j].Rarity.Rank()
		})
	default:
		sort.SliceStable(view, func(i, j int) bool {
			return view[i].Timestamp.After(view[j].Timestamp)
		})
	}

	return view
}

// AvailableRarities возвращает редкости, встречающиеся в owned, от слабой к сильной
func AvailableRarities(owned []models.Creature) []models.Rarity {
	seen := make(map[models.Rarity]struct{})
	rarities := make([]models.Rarity, 0)
	for _, c := range owned {
		if _, ok := seen[c.Rarity]; ok {
			continue
		}
		seen[c.Rarity] = struct{}{}
		rarities = append(rarities, c.Rarity)
	}

	sort.SliceStable(rarities, func(i, j int) bool {
		ri, rj := rarities[i].Rank(), rarities[j].Rank()
		if ri != rj {
			return ri < rj
		}
		return rarities[i] < rarities[j]
	})

	return rarities
}

// collectionEntries добавляет цену продажи к каждому существу
func collectionEntries(view []models.Creature, defaultResellValue int) []models.CollectionEntry {
	entries := make([]models.CollectionEntry, len(view))
	for i, c := range view {
		entries[i] = models.CollectionEntry{
			Creature:  c,
			SellValue: models.ResellValue(c.Rarity, defaultResellValue),
		}
	}
	return entries
}
