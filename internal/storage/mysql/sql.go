package mysql

const insertPropertySQL = `
INSERT INTO properties
  (id, owner_id, title, description, location, lat, lng, price, images,
   beds, baths, guests, amenities, is_available, is_superhost, rating, reviews, created_at, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const updatePropertySQL = `
UPDATE properties SET
  title        = ?,
  description  = ?,
  location     = ?,
  lat          = ?,
  lng          = ?,
  price        = ?,
  images       = ?,
  beds         = ?,
  baths        = ?,
  guests       = ?,
  amenities    = ?,
  is_available = ?,
  is_superhost = ?,
  rating       = ?,
  reviews      = ?,
  updated_at   = ?
WHERE id = ?
`

const propertyColumns = `
  id, owner_id, title, description, location, lat, lng, price, images,
  beds, baths, guests, amenities, is_available, is_superhost, rating, reviews, created_at, updated_at
`

const getPropertySQL = `SELECT` + propertyColumns + `FROM properties WHERE id = ?`

const deletePropertySQL = `DELETE FROM properties WHERE id = ?`

// -----------------------------------------------------------------------------
// BOOKINGS
// -----------------------------------------------------------------------------

const bookingColumns = `
  id, property_id, user_id, check_in, check_out, guests, total_price, status,
  guest_name, guest_email, guest_phone, guest_names,
  payment_id, payment_method, payment_status, created_at, updated_at
`

const insertBookingSQL = `
INSERT INTO bookings
  (id, property_id, user_id, check_in, check_out, guests, total_price, status,
   guest_name, guest_email, guest_phone, guest_names, created_at, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// Rows are appended per night; a duplicate (property_id, night) aborts the reservation.
const insertNightsPrefix = "INSERT INTO booking_nights (property_id, night, booking_id) VALUES "

const releaseNightsSQL = `DELETE FROM booking_nights WHERE booking_id = ?`

const getBookingSQL = `SELECT` + bookingColumns + `FROM bookings WHERE id = ?`

const activeBookingsSQL = `SELECT` + bookingColumns + `
FROM bookings
WHERE property_id = ? AND status IN ('pending','confirmed')
ORDER BY check_in`

const bookingsByUserSQL = `SELECT` + bookingColumns + `
FROM bookings
WHERE user_id = ?
ORDER BY check_in DESC`

const bookingsByPropertySQL = `SELECT` + bookingColumns + `
FROM bookings
WHERE property_id = ?
ORDER BY check_in DESC`

const recentBookingsSQL = `SELECT` + bookingColumns + `
FROM bookings
ORDER BY created_at DESC
LIMIT ?`

const stalePendingSQL = `SELECT` + bookingColumns + `
FROM bookings
WHERE status = 'pending' AND created_at < ?
ORDER BY created_at
LIMIT ?`

// The status guard in WHERE makes each transition a single-row compare-and-set.
const transitionBookingSQL = `
UPDATE bookings SET
  status         = ?,
  payment_id     = COALESCE(?, payment_id),
  payment_method = COALESCE(?, payment_method),
  payment_status = COALESCE(?, payment_status),
  updated_at     = CURRENT_TIMESTAMP(3)
WHERE id = ? AND status = ?
`

const bookingExistsSQL = `SELECT status FROM bookings WHERE id = ?`

const deleteBookingSQL = `DELETE FROM bookings WHERE id = ?`

// -----------------------------------------------------------------------------
// USERS
// -----------------------------------------------------------------------------

// Role is only set on insert; updates never change it.
const upsertUserSQL = `
INSERT INTO users (id, email, display_name, photo_url, phone, role)
VALUES (?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  email        = VALUES(email),
  display_name = VALUES(display_name),
  photo_url    = COALESCE(VALUES(photo_url), users.photo_url),
  phone        = COALESCE(VALUES(phone), users.phone),
  updated_at   = CURRENT_TIMESTAMP(3)
`

const getUserSQL = `
SELECT id, email, display_name, photo_url, phone, role, created_at, updated_at
FROM users WHERE id = ?
`
