package services

import (
	"fmt"
	"os"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendWelcomeEmail greets a new account. Best effort: missing config or a
// SendGrid error never affects signup.
func SendWelcomeEmail(email, username string) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("Welcome email panic recovered: %v\n", r)
		}
	}()

	apiKey := os.Getenv("SENDGRID_API_KEY")
	fromEmail := os.Getenv("FROM_EMAIL")
	if apiKey == "" || fromEmail == "" {
		fmt.Println("Missing SendGrid config, skipping welcome email")
		return
	}

	body := fmt.Sprintf(`Hi %s,

Welcome to PhotoPro! Your account starts with 3 free credits.

Upload a photo, pick a style (corporate, creative, formal or casual) and we
will generate a professional result for you.

- The PhotoPro team`, username)

	from := mail.NewEmail("PhotoPro", fromEmail)
	to := mail.NewEmail(username, email)
	message := mail.NewSingleEmail(from, "Welcome to PhotoPro - 3 free credits", to, body, body)
	client := sendgrid.NewSendClient(apiKey)

	response, err := client.Send(message)
	if err != nil {
		fmt.Printf("Error sending welcome email: %v\n", err)
	} else {
		fmt.Printf("Welcome email sent. Status Code: %d\n", response.StatusCode)
	}
}
