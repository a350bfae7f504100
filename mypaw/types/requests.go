package types

// CredentialsRequest is the body of signup and signin.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

// RegisterPetRequest finishes the capture flow: the identification result
// plus the name the owner picked.
type RegisterPetRequest struct {
	Name string `json:"name"`
	// ImageBase64 carries the captured photo when the pet is registered in
	// one REST call rather than through a session.
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type,omitempty"`
}

type ChatSendRequest struct {
	Message string `json:"message"`
}
