// Package email sends transactional emails through a provider-agnostic
// EmailSender.
//
// PostmarkClient delivers through Postmark. DevSender writes each email to a
// directory as body files plus a JSON metadata file, for local development.
//
//	sender, err := email.NewPostmarkClient(cfg)
//	if err != nil {
//	    return err
//	}
//	err = sender.SendEmail(ctx, email.SendEmailParams{
//	    SendTo:   "student@example.edu",
//	    Subject:  "3 new events in Campus",
//	    BodyText: body,
//	    Tag:      "digest",
//	})
//
// Every implementation validates params first and reports ErrInvalidParams;
// provider failures wrap ErrFailedToSendEmail.
package email
