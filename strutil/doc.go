package strutil

// strutil holds the small string and collection helpers the builders share.
// Collections handed out of an immutable value are always copies, so callers
// can't reach back into a built email.
