package forms

// Login validates the credential sign-in form.
func Login() Schema {
	return Schema{Fields: []Field{
		{Name: "email", Label: "Email", Required: true, Format: FormatEmail},
		{Name: "password", Label: "Password", Required: true, Min: 4, Max: 32},
	}}
}

// Register validates the account creation form.
func Register() Schema {
	return Schema{Fields: []Field{
		{Name: "name", Label: "Name", Required: true, Min: 3, Max: 32},
		{Name: "email", Label: "Email", Required: true, Format: FormatEmail},
		{Name: "password", Label: "Password", Required: true, Min: 4, Max: 32},
	}}
}

// Profile validates profile edits.
func Profile() Schema {
	return Schema{Fields: []Field{
		{Name: "username", Label: "Username", Min: 3, Max: 32},
		{Name: "name", Label: "Name", Min: 3, Max: 32},
	}}
}
