package apkg

const schemaVersion = 11

var schema = []string{
	`CREATE TABLE col (
		id     integer primary key,
		crt    integer not null,
		mod    integer not null,
		scm    integer not null,
		ver    integer not null,
		dty    integer not null,
		usn    integer not null,
		ls     integer not null,
		conf   text not null,
		models text not null,
		decks  text not null,
		dconf  text not null,
		tags   text not null
	)`,
	`CREATE TABLE notes (
		id    integer primary key,
		guid  text not null,
		mid   integer not null,
		mod   integer not null,
		usn   integer not null,
		tags  text not null,
		flds  text not null,
		sfld  integer not null,
		csum  integer not null,
		flags integer not null,
		data  text not null
	)`,
	`CREATE TABLE cards (
		id     integer primary key,
		nid    integer not null,
		did    integer not null,
		ord    integer not null,
		mod    integer not null,
		usn    integer not null,
		type   integer not null,
		queue  integer not null,
		due    integer not null,
		ivl    integer not null,
		factor integer not null,
		reps   integer not null,
		lapses integer not null,
		left   integer not null,
		odue   integer not null,
		odid   integer not null,
		flags  integer not null,
		data   text not null
	)`,
	`CREATE TABLE revlog (
		id      integer primary key,
		cid     integer not null,
		usn     integer not null,
		ease    integer not null,
		ivl     integer not null,
		lastIvl integer not null,
		factor  integer not null,
		time    integer not null,
		type    integer not null
	)`,
	`CREATE TABLE graves (
		usn  integer not null,
		oid  integer not null,
		type integer not null
	)`,
	`CREATE INDEX ix_notes_usn ON notes (usn)`,
	`CREATE INDEX ix_cards_usn ON cards (usn)`,
	`CREATE INDEX ix_revlog_usn ON revlog (usn)`,
	`CREATE INDEX ix_cards_nid ON cards (nid)`,
	`CREATE INDEX ix_cards_sched ON cards (did, queue, due)`,
	`CREATE INDEX ix_revlog_cid ON revlog (cid)`,
	`CREATE INDEX ix_notes_csum ON notes (csum)`,
}

const defaultDeckID = 1

func collectionConf() map[string]interface{} {
	return map[string]interface{}{
		"activeDecks":   []int{1},
		"curDeck":       1,
		"newSpread":     0,
		"collapseTime":  1200,
		"timeLim":       0,
		"estTimes":      true,
		"dueCounts":     true,
		"curModel":      nil,
		"nextPos":       1,
		"sortType":      "noteFld",
		"sortBackwards": false,
		"addToCur":      true,
	}
}

func defaultDeckJSON() map[string]interface{} {
	return map[string]interface{}{
		"newToday":  []int{0, 0},
		"revToday":  []int{0, 0},
		"lrnToday":  []int{0, 0},
		"timeToday": []int{0, 0},
		"conf":      1,
		"usn":       0,
		"desc":      "",
		"dyn":       0,
		"collapsed": false,
		"extendNew": 10,
		"extendRev": 50,
		"id":        defaultDeckID,
		"name":      "Default",
		"mod":       0,
	}
}

func deckConfJSON() map[string]interface{} {
	return map[string]interface{}{
		"1": map[string]interface{}{
			"name":    "Default",
			"replayq": true,
			"lapse": map[string]interface{}{
				"leechFails":  8,
				"minInt":      1,
				"delays":      []int{10},
				"leechAction": 0,
				"mult":        0,
			},
			"rev": map[string]interface{}{
				"perDay":   100,
				"fuzz":     0.05,
				"ivlFct":   1,
				"maxIvl":   36500,
				"ease4":    1.3,
				"bury":     true,
				"minSpace": 1,
			},
			"timer":    0,
			"maxTaken": 60,
			"usn":      0,
			"new": map[string]interface{}{
				"perDay":        20,
				"delays":        []int{1, 10},
				"separate":      true,
				"ints":          []int{1, 4, 7},
				"initialFactor": 2500,
				"bury":          true,
				"order":         1,
			},
			"mod":      0,
			"id":       1,
			"autoplay": true,
		},
	}
}
