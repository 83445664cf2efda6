// Package catalog lists the courses the logged-in account is enrolled in.
//
// The list comes from the core_course_get_enrolled_courses_by_timeline_classification
// AJAX web service, which authenticates with the session key found on any
// logged-in page.
package catalog
