package roadmap

// SyncStats accumulates counts over a full-roadmap sync.
type SyncStats struct {
	Created    int `json:"created"`    // new threads created
	Updated    int `json:"updated"`    // in-place thread edits
	Moved      int `json:"moved"`      // threads moved between forums
	Archived   int `json:"archived"`   // threads newly archived
	Unarchived int `json:"unarchived"` // threads newly unarchived
	Skipped    int `json:"skipped"`    // cards with no mirrored forum or no changes
	Errors     int `json:"errors"`     // per-card failures, isolated from the batch
}

// SyncResult is the outcome of a full-roadmap sync.
type SyncResult struct {
	Success  bool      `json:"success"`
	Stats    SyncStats `json:"stats"`
	Error    string    `json:"error,omitempty"`
	Warnings []string  `json:"warnings,omitempty"`
}

// CardSyncResult describes what targeted sync did for one card. A nil-op
// (untracked status, unmirrored column) is reported with Skipped=true.
type CardSyncResult struct {
	CardID   string `json:"cardId"`
	ThreadID string `json:"threadId,omitempty"`

	Created    bool `json:"created,omitempty"`
	Updated    bool `json:"updated,omitempty"`
	Moved      bool `json:"moved,omitempty"`
	Archived   bool `json:"archived,omitempty"`
	Unarchived bool `json:"unarchived,omitempty"`
	Skipped    bool `json:"skipped,omitempty"`

	// Warnings records swallowed platform failures (forbidden tag edits,
	// archive calls on missing threads) that did not fail the sync.
	Warnings []string `json:"warnings,omitempty"`
}

func (r *CardSyncResult) changed() bool {
	return r.Created || r.Updated || r.Moved || r.Archived || r.Unarchived
}
