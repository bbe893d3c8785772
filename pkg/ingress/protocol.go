package ingress

const (
	// Server -> client
	ConnectedOp int = iota
	ResponseOp
	AnimationOp
	ObjectOp
	// Client -> server
	AttachOp
	DetachOp
	AgentUpdateOp
	AlwaysRunOp
)

type GenericMessage struct {
	Op int
}

// Sent once when a client connects.
type ConnectedMessage struct {
	Op         int // ConnectedOp
	RegionSize float32
	Master     string
}

// Answers an AttachMessage or DetachMessage with the same Id.
type ResponseMessage struct {
	Op       int // ResponseOp
	Id       int
	Success  bool
	Response string
}

// Attach an agent to the region. An empty Session attaches a foreign agent
// that is displayed but never simulated.
type AttachMessage struct {
	Op       int // AttachOp
	Id       int
	Agent    string
	Session  string
	Position [3]float32
	// Zero for the default avatar size
	Scale [3]float32
}

type DetachMessage struct {
	Op    int // DetachOp
	Id    int
	Agent string
}

type AgentUpdateMessage struct {
	Op    int // AgentUpdateOp
	Agent string
	// X, Y, Z, W
	Rotation     [4]float32
	ControlFlags uint32
	State        uint8
	Flags        uint8
}

type AlwaysRunMessage struct {
	Op        int // AlwaysRunOp
	Agent     string
	AlwaysRun bool
}

type AnimationMessage struct {
	Op        int // AnimationOp
	Agent     string
	Animation string
	Name      string
}

type ObjectMessage struct {
	Op           int // ObjectOp
	ID           string
	Flags        uint8
	Position     [3]float32
	Rotation     [4]float32
	Velocity     [3]float32
	Acceleration [3]float32
	Scale        [3]float32
}
