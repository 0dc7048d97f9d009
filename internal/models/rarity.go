package models

// Rarity уровень редкости существа. Неизвестные значения сохраняются как есть.
type Rarity string

const (
	RarityF     Rarity = "F"
	RarityE     Rarity = "E"
	RarityD     Rarity = "D"
	RarityC     Rarity = "C"
	RarityB     Rarity = "B"
	RarityA     Rarity = "A"
	RarityS     Rarity = "S"
	RaritySPlus Rarity = "S+"
)

// RarityOrder известные уровни от слабого к сильному
var RarityOrder = []Rarity{RarityF, RarityE, RarityD, RarityC, RarityB, RarityA, RarityS, RaritySPlus}

var rarityRanks = func() map[Rarity]int {
	ranks := make(map[Rarity]int, len(RarityOrder))
	for i, r := range RarityOrder {
		ranks[r] = i
	}
	return ranks
}()

// resellTable выплата в токенах за продажу существа каждого уровня
var resellTable = map[Rarity]int{
	RarityF:     2,
	RarityE:     3,
	RarityD:     5,
	RarityC:     7,
	RarityB:     10,
	RarityA:     15,
	RarityS:     20,
	RaritySPlus: 30,
}

// Rank возвращает позицию уровня; неизвестные редкости идут после S+.
func (r Rarity) Rank() int {
	if rank, ok := rarityRanks[r]; ok {
		return rank
	}
	return len(RarityOrder)
}

func (r Rarity) IsKnown() bool {
	_, ok := rarityRanks[r]
	return ok
}

// ResellValue возвращает выплату для r или defaultValue
func ResellValue(r Rarity, defaultValue int) int {
	if value, ok := resellTable[r]; ok {
		return value
	}
	return defaultValue
}

// ResellValues возвращает копию таблицы цен продажи
func ResellValues() map[Rarity]int {
	values := make(map[Rarity]int, len(resellTable))
	for r, v := range resellTable {
		values[r] = v
	}
	return values
}
