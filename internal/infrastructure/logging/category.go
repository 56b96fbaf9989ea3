package logging

type Category string
type SubCategory string
type ExtraKey string

const (
	General         Category = "General"
	Internal        Category = "Internal"
	Mongo           Category = "Mongo"
	RabbitMQ        Category = "RabbitMQ"
	Validation      Category = "Validation"
	RequestResponse Category = "RequestResponse"
	WebSocket       Category = "WebSocket"
)

const (
	// General
	Startup         SubCategory = "Startup"
	Shutdown        SubCategory = "Shutdown"
	ExternalService SubCategory = "ExternalService"

	// WebSocket
	RoomLifecycle SubCategory = "RoomLifecycle"
	Broadcast     SubCategory = "Broadcast"
	Membership    SubCategory = "Membership"

	// Mongo / RabbitMQ
	Persistence SubCategory = "Persistence"
	Publish     SubCategory = "Publish"
	Consume     SubCategory = "Consume"
)

const (
	AppName      ExtraKey = "AppName"
	LoggerName   ExtraKey = "Logger"
	RoomCode     ExtraKey = "RoomCode"
	Username     ExtraKey = "Username"
	ClientID     ExtraKey = "ClientId"
	MemberCount  ExtraKey = "MemberCount"
	EventType    ExtraKey = "EventType"
	ErrorMessage ExtraKey = "ErrorMessage"
)
