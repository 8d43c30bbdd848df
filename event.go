package timesteward

// Origin records whether an Event was placed on the queue directly by a
// caller (Fiat) or produced by a predictor re-evaluating its reads
// (Predicted).
type Origin struct {
	Fiat      bool
	Predictor TypeID // valid iff !Fiat
	Subject   RowID  // the predictor's subject row, valid iff !Fiat
}

// FiatOrigin returns the Origin of a caller-supplied event.
func FiatOrigin() Origin { return Origin{Fiat: true} }

// PredictedOrigin returns the Origin of an event a predictor produced.
func PredictedOrigin(predictor TypeID, subject RowID) Origin {
	return Origin{Fiat: false, Predictor: predictor, Subject: subject}
}

// Event is the immutable record of one atomic, time-stamped state
// transition (spec §3). Once placed and executed, its read-set and
// write-set live in the dependency graph (depgraph.go), never inline on
// the Event itself, so that re-executing it can atomically replace its
// edges.
type Event struct {
	Time    ExtendedTime
	Payload Value
	Origin  Origin
}

// Body is the user-supplied function an Event's Payload dispatches to. It
// receives a Mutator, the only legal channel for reading or writing
// simulation state from inside an event (spec §5: "Suspension points inside
// user code are forbidden; the accessor/mutator façades offer only
// synchronous read/write operations").
type Body func(m *Mutator, payload Value) error

// PredictorFunc is a pure function of the state it queries through an
// Accessor, producing at most one candidate event. Returning ok == false
// means "no event from me until one of my reads changes" (spec §4.4).
type PredictorFunc func(a *Accessor, subject RowID) (at ExtendedTime, payload Value, ok bool)

// predictorInstance is the live binding of a PredictorFunc to one subject
// row (spec §3: "Predictor instance. Tuple {predictor_type_id, subject_row,
// last_result}").
type predictorInstance struct {
	typ           TypeID
	subject       RowID
	fn            PredictorFunc
	lastPredicted ExtendedTime
	hasPrediction bool
	queueHandle   queueHandle // handle of the event currently on the queue, if any
}

func (p *predictorInstance) accessorHandle() accessorHandle {
	return accessorHandle{kind: accessorPredictor, predictorType: p.typ, subject: p.subject}
}
