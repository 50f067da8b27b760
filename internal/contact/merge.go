package contact

import "unicode/utf8"

// MergePeople folds incoming into people. A person joins every existing person
// that shares at least one email; when it bridges several, they collapse into
// the earliest. Phones never link people. The result does not alias incoming.
func MergePeople(people []Person, incoming ...Person) []Person {
	for _, in := range incoming {
		people = mergePerson(people, in.Clone())
	}
	return people
}

func mergePerson(people []Person, in Person) []Person {
	target := -1
	kept := people[:0:0]
	for _, p := range people {
		if !p.Emails.Intersects(in.Emails) {
			kept = append(kept, p)
			continue
		}
		if target < 0 {
			target = len(kept)
			kept = append(kept, p)
			continue
		}
		absorb(&kept[target], p)
	}
	if target < 0 {
		return append(kept, in)
	}
	absorb(&kept[target], in)
	return kept
}

func absorb(dst *Person, src Person) {
	dst.Emails.Union(src.Emails)
	dst.Phones.Union(src.Phones)
	if betterName(src, *dst) {
		dst.Name = src.Name
		dst.Origin = src.Origin
	}
}

// betterName orders names by trust, then length, then lexically, so the
// surviving name does not depend on merge order.
func betterName(a, b Person) bool {
	if ra, rb := nameRank(a), nameRank(b); ra != rb {
		return ra > rb
	}
	if la, lb := utf8.RuneCountInString(a.Name), utf8.RuneCountInString(b.Name); la != lb {
		return la > lb
	}
	return a.Name < b.Name
}

// nameRank orders how much a person's name can be trusted.
func nameRank(p Person) int {
	switch {
	case p.Origin == OriginDetectedCard && p.Name != NameNotFound && p.Name != "":
		return 2
	case p.Origin == OriginInferredFromEmail:
		return 1
	default:
		return 0
	}
}

// ClaimedEmails is the union of every person's emails.
func ClaimedEmails(people []Person) Set[Email] {
	var claimed Set[Email]
	for _, p := range people {
		claimed.Union(p.Emails)
	}
	return claimed
}

// ClaimedPhones is the union of every person's phones.
func ClaimedPhones(people []Person) Set[Phone] {
	var claimed Set[Phone]
	for _, p := range people {
		claimed.Union(p.Phones)
	}
	return claimed
}

// Exclusive drops general addresses that belong to a person.
func (r *PageResult) Exclusive() {
	for _, e := range ClaimedEmails(r.People).Values() {
		r.GeneralEmails.Remove(e)
	}
	for _, p := range ClaimedPhones(r.People).Values() {
		r.GeneralPhones.Remove(p)
	}
}

// Fold merges page into the record. Sets are unioned, people merge on shared
// emails, and addresses claimed by any person leave the general sets.
func (d *DomainRecord) Fold(page PageResult) {
	d.GeneralEmails.Union(page.GeneralEmails)
	d.GeneralPhones.Union(page.GeneralPhones)
	d.Socials.Union(page.Socials)
	d.Forms.Union(page.Forms)
	d.People = MergePeople(d.People, page.People...)
	d.Exclusive()
}
