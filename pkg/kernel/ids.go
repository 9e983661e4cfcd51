package kernel

type TenantID string

func NewTenantID(id string) TenantID { return TenantID(id) }
func (t TenantID) String() string    { return string(t) }
func (t TenantID) IsEmpty() bool     { return string(t) == "" }

type FlowID string

func NewFlowID(id string) FlowID { return FlowID(id) }
func (f FlowID) String() string  { return string(f) }
func (f FlowID) IsEmpty() bool   { return string(f) == "" }

type SessionID string

func NewSessionID(id string) SessionID { return SessionID(id) }
func (s SessionID) String() string     { return string(s) }
func (s SessionID) IsEmpty() bool      { return string(s) == "" }

type MessageID string

func NewMessageID(id string) MessageID { return MessageID(id) }
func (m MessageID) String() string     { return string(m) }
func (m MessageID) IsEmpty() bool      { return string(m) == "" }

type ChannelID string

func NewChannelID(id string) ChannelID { return ChannelID(id) }
func (c ChannelID) String() string     { return string(c) }
func (c ChannelID) IsEmpty() bool      { return string(c) == "" }

type AppointmentID string

func NewAppointmentID(id string) AppointmentID { return AppointmentID(id) }
func (a AppointmentID) String() string         { return string(a) }
func (a AppointmentID) IsEmpty() bool          { return string(a) == "" }

type LeadID string

func NewLeadID(id string) LeadID { return LeadID(id) }
func (l LeadID) String() string  { return string(l) }
func (l LeadID) IsEmpty() bool   { return string(l) == "" }
