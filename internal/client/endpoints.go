package client

const (
	usersEndpoint         = "/v1/users"
	tokensEndpoint        = "/v1/tokens"
	conversationsEndpoint = "/v1/conversations"
	messagesEndpoint      = "/v1/messages"

	registerUser         = usersEndpoint              // POST
	getCurrentActiveUser = usersEndpoint + "/current" // GET
	authenticate         = tokensEndpoint + "/auth"   // POST, DELETE signs out everywhere
	unreadCounts         = "/v1/unread"               // GET
	subscribeTo          = "/v1/feed"                 // websocket
	healthz              = "/v1/healthz"              // GET
)

func conversationPath(id string) string {
	return conversationsEndpoint + "/" + id
}

func conversationMessagesPath(id string) string {
	return conversationsEndpoint + "/" + id + "/messages"
}

func conversationReadPath(id string) string {
	return conversationsEndpoint + "/" + id + "/read"
}

func messageReadPath(id string) string {
	return messagesEndpoint + "/" + id + "/read"
}
