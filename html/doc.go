package html

// html is responsible for deriving a text/plain rendering of an HTML email
// body, so that a message can carry both as multipart/alternative parts. It's
// not concerned with sending the email or with template substitution, which
// happen before the HTML reaches this package.
