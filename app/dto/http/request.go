package http

type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Phone           string `json:"phone,omitempty"`
	Birthdate       string `json:"birthdate,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type DeleteUserRequest struct {
	Password             string `json:"password"`
	PasswordConfirmation string `json:"passwordConfirmation"`
}

type RecoverPasswordRequest struct {
	Email string `json:"email"`
}

type UpdatePasswordRequest struct {
	Token                string `json:"token"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"passwordConfirmation"`
}

type ChangePasswordRequest struct {
	OldPassword          string `json:"oldPassword"`
	NewPassword          string `json:"newPassword"`
	PasswordConfirmation string `json:"passwordConfirmation"`
}

type PreferredLanguageRequest struct {
	PreferredLanguage string `json:"preferredLanguage"`
}

type BloodDonationRequest struct {
	BloodType        string `json:"bloodType"`
	DonationLocation string `json:"donationLocation"`
	DidDonate        bool   `json:"didDonate"`
}

type TrustedContactRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Birthdate string `json:"birthdate"`
	Address   string `json:"address"`
}

type HealthPlanRequest struct {
	Institution   string `json:"institution"`
	Type          string `json:"type"`
	Accommodation string `json:"accommodation"`
}
