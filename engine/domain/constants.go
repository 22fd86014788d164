package domain

// Priority constants. Lower values are dispatched earlier at equal depth.
// Mirrors the fixed per-kind priorities of the original scheduler; priority
// is never computed from document value (see Non-goals).
const (
	PriorityInterfaceReq  = 100
	PriorityEntitySerial  = 30
	PriorityEntityPackage = 31
	PriorityEntitySend    = 10
	PriorityJournalReq    = 102
	PriorityConferenceReq = 102
	PriorityPubReq        = 101
	PriorityAuthorReq     = 102
)

// Entity class ids. An adapter's VariantType returns one of these, and
// SerializeTag stamps it onto the document as VariantID.
const (
	ClassConference = 1040
	ClassJournal     = 1030
	// ClassJournalSingle is retained for parity with the original constant
	// table but intentionally has no call sites; do not add new uses.
	ClassJournalSingle = 1031
	ClassAuthor        = 1000
	ClassPub           = 1010
	ClassVersion       = 1011
	ClassCitation      = 1020
)

// Destination queue names. The router resolves these to a registered
// AsyncQueue processor at wiring time.
const (
	QueueScraper  = "scraper"
	QueuePipeline = "pipeline"
)

// Message kinds recognized by the pipeline queue. Fetch-message kinds are
// adapter-specific and live in package adapter.
const (
	KindSerializeTag = "serialize_tag"
	KindCompress     = "compress"
	KindSend         = "send"
)

// Interface (source adapter) identifiers. Also used as the document-store
// namespace for each adapter.
const (
	IfaceAuthor     = "author"
	IfacePublication = "publication"
	IfaceConference = "conference"
	IfaceJournal    = "journal"
)

// CaptchaAction selects how a tab reacts to a detected captcha challenge.
type CaptchaAction string

const (
	CaptchaIgnore   CaptchaAction = "IGNORE"
	CaptchaWaitUser CaptchaAction = "WAIT_USER"
	CaptchaBypass   CaptchaAction = "BYPASS"
)

// BrowserType selects the driver implementation the Tab Pool wraps.
type BrowserType string

const (
	BrowserChrome   BrowserType = "chrome"
	BrowserFirefox  BrowserType = "firefox"
	BrowserEmbedded BrowserType = "embedded"
)
