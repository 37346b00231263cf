package apkg

type Deck struct {
	ID          int64
	Name        string
	Description string
	Notes       []*Note
}

func NewDeck(id int64, name, description string) *Deck {
	return &Deck{
		ID:          id,
		Name:        name,
		Description: description,
	}
}

// AddNote appends n; insertion order is the deck's default new-card order.
func (d *Deck) AddNote(n *Note) {
	d.Notes = append(d.Notes, n)
}

func (d *Deck) models() []*Model {
	seen := make(map[int64]bool)
	var models []*Model
	for _, n := range d.Notes {
		if !seen[n.Model.ID] {
			seen[n.Model.ID] = true
			models = append(models, n.Model)
		}
	}
	return models
}

func (d *Deck) toJSON(mod int64) map[string]interface{} {
	return map[string]interface{}{
		"collapsed": false,
		"conf":      1,
		"desc":      d.Description,
		"dyn":       0,
		"extendNew": 0,
		"extendRev": 50,
		"id":        d.ID,
		"lrnToday":  []int{0, 0},
		"mod":       mod,
		"name":      d.Name,
		"newToday":  []int{0, 0},
		"revToday":  []int{0, 0},
		"timeToday": []int{0, 0},
		"usn":       -1,
	}
}
