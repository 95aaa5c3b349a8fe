// Package imagegen wraps the Hugging Face inference router used by the image
// stage. A prompt is posted to <base>/<model> with the configured style
// suffix appended and the negative prompt attached; the response body is the
// rendered image. A 503 usually means the model is still loading, so it is
// retried with backoff like throttling and other server errors.
package imagegen
